//nolint:exhaustruct
package serialize_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/format/jsv"
	"github.com/pasqal-io/textserde/hooks"
	"github.com/pasqal-io/textserde/metrics"
	"github.com/pasqal-io/textserde/serialize"
	"github.com/pasqal-io/textserde/session"
	"github.com/pasqal-io/textserde/shared"
)

type Address struct {
	City string
	Zip  int
}

type Person struct {
	Name     string
	Age      int
	Address  *Address
	Tags     []string
	Scores   map[string]float64
	Extra    any
	Nickname string `text:"nick,omitempty"`
	Callback func()
}

type Node struct {
	Name string
	Next *Node
}

type Exploding struct{}

func (Exploding) MarshalText() ([]byte, error) {
	panic("boom")
}

func (*Exploding) UnmarshalText([]byte) error {
	return nil
}

type Fragile struct {
	Before string
	Broken Exploding
	After  string
}

type Ordered struct {
	keys []string
}

func (o Ordered) MarshalTree() any {
	pairs := shared.Pairs{}
	for i, k := range o.keys {
		pairs = append(pairs, shared.Pair{Key: k, Value: i})
	}
	return pairs
}

type Audited struct {
	Name    string
	Stamped bool
}

type Embedding struct {
	Audited
	Size int
}

func format(t *testing.T, value any, cfg config.Config) string {
	t.Helper()
	tree, err := serialize.ToTree(value, session.New(cfg, false), config.InvariantCulture)
	assert.NilError(t, err)
	return jsv.Format(tree)
}

func TestStructs(t *testing.T) {
	person := Person{
		Name:     "Ada",
		Age:      36,
		Address:  &Address{City: "London", Zip: 1},
		Tags:     []string{"math", "poetry"},
		Scores:   map[string]float64{"b": 2.5, "a": 1},
		Extra:    []any{1, "x", nil},
		Callback: func() {},
	}
	assert.Equal(t, format(t, person, config.Default()),
		"{Name:Ada,Age:36,Address:{City:London,Zip:1},Tags:[math,poetry],Scores:{a:1,b:2.5},Extra:[1,x,]}")

	// Pointers to structs are transparent.
	assert.Equal(t, format(t, &person.Address, config.Default()), "{City:London,Zip:1}")
}

func TestNulls(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, format(t, Person{Name: "Ada"}, cfg), "{Name:Ada,Age:0}")

	cfg.IncludeNullValues = true
	assert.Equal(t, format(t, Person{Name: "Ada"}, cfg), "{Name:Ada,Age:0,Address:,Tags:,Scores:,Extra:,Callback:}")

	tree, err := serialize.ToTree(nil, session.New(config.Default(), false), config.InvariantCulture)
	assert.NilError(t, err)
	assert.Equal(t, tree, shared.Value(shared.Null{}))
}

func TestDictionaryNulls(t *testing.T) {
	values := map[string]*int{"a": nil}
	cfg := config.Default()
	assert.Equal(t, format(t, values, cfg), "{}")
	cfg.IncludeNullValuesInDictionaries = true
	assert.Equal(t, format(t, values, cfg), "{a:}")
}

func TestNonStringKeys(t *testing.T) {
	assert.Equal(t, format(t, map[int]string{10: "ten", 2: "two"}, config.Default()), "{10:ten,2:two}")

	_, err := serialize.ToTree(map[[2]int]string{{1, 2}: "x"}, session.New(config.Default(), false), config.InvariantCulture)
	assert.ErrorIs(t, err, shared.ErrUnsupportedType)
}

func TestOmissionPolicies(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, format(t, Person{Nickname: "Countess"}, cfg), `{Name:"",Age:0,nick:Countess}`)

	cfg.ExcludeDefaultValues = true
	assert.Equal(t, format(t, Person{Age: 3}, cfg), "{Age:3}")
}

func TestTextCase(t *testing.T) {
	cfg := config.Default()
	cfg.TextCase = config.TextCaseSnakeCase
	type Account struct {
		UserName  string
		CreatedAt time.Time `text:"Created"`
	}
	assert.Equal(t, format(t, Account{UserName: "ada", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, cfg),
		"{user_name:ada,Created:2024-01-02T00:00:00Z}")
}

func TestUnsupportedTypes(t *testing.T) {
	type WithChannel struct {
		Events chan int
	}
	_, err := serialize.ToTree(WithChannel{Events: make(chan int)}, session.New(config.Default(), false), config.InvariantCulture)
	assert.ErrorIs(t, err, shared.ErrUnsupportedType)
	assert.ErrorContains(t, err, "WithChannel.Events")

	_, err = serialize.ToTree(complex(1, 2), session.New(config.Default(), false), config.InvariantCulture)
	assert.ErrorIs(t, err, shared.ErrUnsupportedType)
}

func TestCycles(t *testing.T) {
	first := &Node{Name: "first"}
	second := &Node{Name: "second", Next: first}
	first.Next = second

	before := testutil.ToFloat64(metrics.CyclesBroken)
	sess := session.New(config.Default(), true)
	tree, err := serialize.ToTree(first, sess, config.InvariantCulture)
	assert.NilError(t, err)
	assert.Equal(t, jsv.Format(tree), "{Name:first,Next:{Name:second,Next:<circular>}}")
	assert.Equal(t, sess.Cycles(), 1)
	assert.Equal(t, testutil.ToFloat64(metrics.CyclesBroken), before+1)

	// Without cycle safety, we stop at the maximal depth.
	cfg := config.Default()
	cfg.MaxDepth = 32
	_, err = serialize.ToTree(first, session.New(cfg, false), config.InvariantCulture)
	assert.ErrorIs(t, err, shared.ErrMaxDepthExceeded)
}

func TestSharedReferencesAreNotCycles(t *testing.T) {
	common := &Address{City: "Paris"}
	pair := []*Address{common, common}
	tree, err := serialize.ToTree(pair, session.New(config.Default(), true), config.InvariantCulture)
	assert.NilError(t, err)
	assert.Equal(t, jsv.Format(tree), "[{City:Paris,Zip:0},{City:Paris,Zip:0}]")
}

func TestPanickingMembersAreSkipped(t *testing.T) {
	before := testutil.ToFloat64(metrics.MembersSkipped)
	assert.Equal(t, format(t, Fragile{Before: "a", After: "b"}, config.Default()), "{Before:a,After:b}")
	assert.Equal(t, testutil.ToFloat64(metrics.MembersSkipped), before+1)
}

func TestTreeMarshaler(t *testing.T) {
	assert.Equal(t, format(t, Ordered{keys: []string{"z", "a", "m"}}, config.Default()), "{z:0,a:1,m:2}")
}

func TestHooks(t *testing.T) {
	var serialized []string
	hooks.Register(hooks.Set[Audited]{
		OnSerializing: func(a Audited) Audited {
			a.Stamped = true
			return a
		},
		OnSerialized: func(a Audited) {
			serialized = append(serialized, a.Name)
		},
	})
	defer hooks.Reset[Audited]()

	value := Embedding{Audited: Audited{Name: "x"}, Size: 2}
	assert.Equal(t, format(t, value, config.Default()), "{Name:x,Stamped:true,Size:2}")
	// The original is left alone.
	assert.Assert(t, !value.Stamped)
	assert.DeepEqual(t, serialized, []string{"x"})
}

func TestArrays(t *testing.T) {
	tree, err := serialize.ToTree([3]int{1, 2, 3}, session.New(config.Default(), false), config.InvariantCulture)
	assert.NilError(t, err)
	assert.DeepEqual(t, tree, shared.Value(shared.List{shared.Number("1"), shared.Number("2"), shared.Number("3")}))

	tree, err = serialize.ToTree([]byte("hi"), session.New(config.Default(), false), config.InvariantCulture)
	assert.NilError(t, err)
	assert.Equal(t, tree, shared.Value(shared.String("aGk=")))
}
