package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter forwards fx lifecycle events to the digestor logger.
// Wiring noise goes to DEBUG; failures always surface at ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		hookResult("OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		hookResult("OnStop", e.FunctionName, e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("fx provide failed: %v", e.Err)
			return
		}
		Debugf("fx provided: %s", strings.Join(e.OutputTypeNames, ", "))
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("fx supply failed for %s: %v", e.TypeName, e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx invoke %s failed: %v", shortFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("fx start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("fx rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx start failed: %v", e.Err)
			return
		}
		Debugf("fx application started")
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("fx stop failed: %v", e.Err)
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx logger initialization failed: %v", e.Err)
		}
	}
}

func hookResult(kind, funcName string, err error) {
	if err != nil {
		Errorf("%s hook %s failed: %v", kind, shortFuncName(funcName), err)
		return
	}
	Debugf("%s hook %s executed", kind, shortFuncName(funcName))
}

// shortFuncName drops the ".funcN" suffix fx reports for closures.
func shortFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
