package transformer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/logger"
	"github.com/naturalnetworks/sungrow-bridge/sungrow"
)

// Transformer runs an optional JavaScript hook over the polled readings
// before the payload is built. The script must define
//
//	function transform(readings) { ...; return readings }
//
// where readings is a map of name to {value, desc}. Script errors abort the
// current cycle at the usual boundary; the script may be hot-reloaded when
// the config file changes.
type Transformer struct {
	mu         sync.RWMutex
	vm         *goja.Runtime
	transform  goja.Callable
	scriptPath string
}

type jsReading struct {
	Value interface{} `json:"value"`
	Desc  string      `json:"desc"`
}

// New creates a transformer from cfg. Returns (nil, nil) when no script is
// configured.
func New(cfg config.TransformConfig) (*Transformer, error) {
	code, err := scriptCode(cfg)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, nil
	}

	vm, fn, err := compile(code)
	if err != nil {
		return nil, err
	}

	logger.Info("loaded transform script")
	return &Transformer{vm: vm, transform: fn, scriptPath: cfg.ScriptPath}, nil
}

// Reload replaces the script, e.g. after a config file change.
func (t *Transformer) Reload(cfg config.TransformConfig) error {
	code, err := scriptCode(cfg)
	if err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("no script code or script path provided")
	}

	vm, fn, err := compile(code)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.vm = vm
	t.transform = fn
	t.scriptPath = cfg.ScriptPath
	t.mu.Unlock()

	logger.Info("reloaded transform script")
	return nil
}

// Apply runs the hook over readings and returns the adjusted set.
func (t *Transformer) Apply(readings map[string]sungrow.Reading) (map[string]sungrow.Reading, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Plain maps so the script sees lowercase value/desc properties.
	in := make(map[string]map[string]interface{}, len(readings))
	for name, r := range readings {
		in[name] = map[string]interface{}{"value": r.Value, "desc": r.Desc}
	}

	result, err := t.transform(goja.Undefined(), t.vm.ToValue(in))
	if err != nil {
		return nil, fmt.Errorf("transform script failed: %w", err)
	}

	// Round-trip through JSON so JS objects come back as plain Go values.
	raw, err := json.Marshal(result.Export())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize script result: %w", err)
	}

	var decoded map[string]jsReading
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("script did not return a reading map: %w", err)
	}

	out := make(map[string]sungrow.Reading, len(decoded))
	for name, r := range decoded {
		out[name] = sungrow.Reading{Value: r.Value, Desc: r.Desc}
	}
	return out, nil
}

func scriptCode(cfg config.TransformConfig) (string, error) {
	if cfg.ScriptCode != "" {
		return cfg.ScriptCode, nil
	}
	if cfg.ScriptPath == "" {
		return "", nil
	}
	raw, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return "", fmt.Errorf("failed to load script file %s: %w", cfg.ScriptPath, err)
	}
	return string(raw), nil
}

func compile(code string) (*goja.Runtime, goja.Callable, error) {
	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		logger.Info("[JS] %s", msg)
	})

	_ = vm.Set("formatDate", func(timestamp int64, format string) string {
		if format == "" {
			format = "2006-01-02 15:04:05"
		}
		return time.Unix(timestamp, 0).Format(format)
	})

	_ = vm.Set("round", func(value float64, places int) float64 {
		shift := 1.0
		for i := 0; i < places; i++ {
			shift *= 10
		}
		if value >= 0 {
			return float64(int64(value*shift+0.5)) / shift
		}
		return float64(int64(value*shift-0.5)) / shift
	})

	if _, err := vm.RunString(code); err != nil {
		return nil, nil, fmt.Errorf("failed to run script: %w", err)
	}

	value := vm.Get("transform")
	if value == nil {
		return nil, nil, fmt.Errorf("script does not define a 'transform' function")
	}

	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, nil, fmt.Errorf("'transform' is not a function")
	}

	return vm, fn, nil
}
