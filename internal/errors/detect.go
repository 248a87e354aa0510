package errors

import (
	stderrors "errors"
	"runtime"
	"strings"
)

const errorsPackagePath = "github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"

// packageComponents maps a package path fragment to the component name used
// in reports. Order matters: the first match wins.
var packageComponents = []struct {
	fragment  string
	component string
}{
	{"/internal/classifier", "classifier"},
	{"/internal/wikipedia", "wikipedia"},
	{"/internal/registry", "registry"},
	{"/internal/identify", "identify"},
	{"/internal/animals", "animals"},
	{"/internal/datastore", "datastore"},
	{"/internal/conf", "configuration"},
	{"/internal/telemetry", "telemetry"},
	{"/internal/api", "api"},
}

// detectComponent walks the stack to the first frame outside this package.
func detectComponent() string {
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, errorsPackagePath+".") {
			return componentFor(frame.Function)
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// componentFor takes a function name like ".../internal/wikipedia.(*Resolver).Resolve".
func componentFor(function string) string {
	for _, pc := range packageComponents {
		if strings.Contains(function, pc.fragment) {
			return pc.component
		}
	}
	pkg := function[strings.LastIndex(function, "/")+1:]
	if dot := strings.Index(pkg, "."); dot > 0 {
		return pkg[:dot]
	}
	return ComponentUnknown
}

var messageCategories = []struct {
	needles  []string
	category ErrorCategory
}{
	{[]string{"deadline exceeded", "timeout"}, CategoryTimeout},
	{[]string{"connection"}, CategoryNetwork},
	{[]string{"validation", "invalid"}, CategoryValidation},
	{[]string{"unique constraint", "duplicate"}, CategoryConflict},
}

var componentCategories = map[string]ErrorCategory{
	"classifier": CategoryClassification,
	"wikipedia":  CategoryEnrichment,
	"registry":   CategoryRegistry,
	"datastore":  CategoryDatabase,
	"api":        CategoryHTTP,
}

// detectCategory prefers a category already on the chain, then the message
// text, then the component.
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	var ee *EnhancedError
	if stderrors.As(err, &ee) && ee.Category != "" {
		return ee.Category
	}

	msg := strings.ToLower(err.Error())
	for _, mc := range messageCategories {
		for _, needle := range mc.needles {
			if strings.Contains(msg, needle) {
				return mc.category
			}
		}
	}
	if category, ok := componentCategories[component]; ok {
		return category
	}
	return CategoryGeneric
}
