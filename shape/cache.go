package shape

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pasqal-io/textserde/internal/logging"
	"github.com/pasqal-io/textserde/metrics"
)

type cacheKey struct {
	t             reflect.Type
	includeFields bool
}

var (
	cache sync.Map // cacheKey -> *Shape
	group singleflight.Group
)

// Return the shape of `t`, building it on first use.
//
// Pointer types are dereferenced. Non-struct types, and structs with no
// exported members, have an empty shape. Members tagged `,field` are only
// included if `includeFields` is true.
//
// Safe for concurrent use.
func Of(t reflect.Type, includeFields bool) *Shape {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return build(reflect.TypeOf(struct{}{}), includeFields)
	}
	key := cacheKey{t: t, includeFields: includeFields}
	if cached, ok := cache.Load(key); ok {
		return cached.(*Shape) //nolint:forcetypeassert
	}

	flight := fmt.Sprintf("%s|%s|%t", t.PkgPath(), t.String(), includeFields)
	built, _, _ := group.Do(flight, func() (any, error) {
		if cached, ok := cache.Load(key); ok {
			return cached, nil
		}
		result := build(t, includeFields)
		cache.Store(key, result)
		metrics.ShapeBuilds.Inc()
		logging.L().Debug("built type shape",
			logging.FieldType(t), zap.Int("members", len(result.Members)), zap.Bool("includeFields", includeFields))
		return result, nil
	})
	result := built.(*Shape) //nolint:forcetypeassert
	if result.Type != t {
		// Two distinct types printing the same, e.g. local types of two functions.
		actual, _ := cache.LoadOrStore(key, build(t, includeFields))
		result = actual.(*Shape) //nolint:forcetypeassert
	}
	return result
}

// Forget every cached shape. Meant for tests.
func Reset() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
