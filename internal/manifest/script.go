package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dop251/goja"
)

// DefaultScriptTimeout bounds the evaluation of config.js and soa.js
const DefaultScriptTimeout = 2 * time.Second

// requireCall matches require("x"), require('x') and require(`x`)
var requireCall = regexp.MustCompile("require\\s*\\(\\s*(?:\"[^\"]*\"|'[^']*'|`[^`]*`)\\s*\\)")

// evalScript evaluates a legacy CommonJS manifest and returns module.exports
// as a plain object. Every require call yields an empty object, and functions
// or other non-JSON values are dropped.
func evalScript(source []byte, timeout time.Duration) (map[string]any, error) {
	src := requireCall.ReplaceAllString(string(source), "({})")

	vm := goja.New()
	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", module); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}
	// dynamic require arguments are not rewritten above
	if err := vm.Set("require", func(goja.FunctionCall) goja.Value { return vm.NewObject() }); err != nil {
		return nil, err
	}

	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("manifest evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunString(src); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("evaluation exceeded %s", timeout)
		}
		return nil, err
	}

	result := module.Get("exports")
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, errNotObject
	}

	if s, ok := result.Export().(string); ok {
		return parseJSON([]byte(s))
	}

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not available")
	}
	encoded, err := stringify(goja.Undefined(), result)
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(encoded) {
		return nil, errNotObject
	}
	return parseJSON([]byte(encoded.String()))
}
