package system

import (
	"reflect"
	"time"

	"github.com/emberforge/engine/internal/component"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/scripting"
)

const NameScript = "script"

// ScriptSystem runs the Lua on_update hook. Script writes are gameplay
// Transform modifications.
type ScriptSystem struct {
	engine *scripting.Engine
}

func NewScriptSystem(engine *scripting.Engine) *ScriptSystem {
	return &ScriptSystem{engine: engine}
}

func (s *ScriptSystem) Name() string { return NameScript }

func (s *ScriptSystem) Access() coresys.Access {
	return coresys.Access{Writes: []reflect.Type{coresys.Res[component.Transform](), coresys.Res[scripting.Engine]()}}
}

func (s *ScriptSystem) Run(dt time.Duration) {
	s.engine.Update(dt.Seconds())
}
