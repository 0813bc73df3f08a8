//nolint:exhaustruct
package serde_test

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gotest.tools/v3/assert"

	"github.com/pasqal-io/textserde/config"
	"github.com/pasqal-io/textserde/dynamic"
	"github.com/pasqal-io/textserde/hooks"
	"github.com/pasqal-io/textserde/metrics"
	"github.com/pasqal-io/textserde/serde"
	"github.com/pasqal-io/textserde/shared"
)

type Customer struct {
	Id    int
	Name  string
	Tags  []string
	Score float64
}

func ada() Customer {
	return Customer{
		Id:    1,
		Name:  "Ada Lovelace",
		Tags:  []string{"math", "poetry"},
		Score: 1.5,
	}
}

func TestRoundTripEveryFormat(t *testing.T) {
	for _, format := range serde.Formats {
		t.Run(format.String(), func(t *testing.T) {
			text, err := serde.SerializeToString(ada(), format)
			require.NoError(t, err)
			back, err := serde.DeserializeFromString[Customer](text, format)
			require.NoError(t, err)
			if diff := cmp.Diff(ada(), back); diff != "" {
				t.Errorf("round trip through %s (-want +got):\n%s", format, diff)
			}
		})
	}
}

func TestWireForms(t *testing.T) {
	text, err := serde.ToJSON(ada())
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Id":1,"Name":"Ada Lovelace","Tags":["math","poetry"],"Score":1.5}`)

	text, err = serde.ToJSV(ada())
	assert.NilError(t, err)
	assert.Equal(t, text, `{Id:1,Name:Ada Lovelace,Tags:[math,poetry],Score:1.5}`)

	text, err = serde.ToCSV([]Customer{ada()})
	assert.NilError(t, err)
	assert.Equal(t, text, "Id,Name,Tags,Score\r\n1,Ada Lovelace,\"[math,poetry]\",1.5\r\n")

	text, err = serde.ToQueryString(ada())
	assert.NilError(t, err)
	assert.Equal(t, text, "Id=1&Name=Ada+Lovelace&Tags=math,poetry&Score=1.5")
}

func TestFromEveryFormat(t *testing.T) {
	fromJSON, err := serde.FromJSON[Customer](`{"Id":1,"Name":"Ada Lovelace","Tags":["math","poetry"],"Score":1.5}`)
	assert.NilError(t, err)
	fromJSV, err := serde.FromJSV[Customer](`{Id:1,Name:Ada Lovelace,Tags:[math,poetry],Score:1.5}`)
	assert.NilError(t, err)
	fromCSV, err := serde.FromCSV[[]Customer]("Id,Name,Tags,Score\r\n1,Ada Lovelace,\"[math,poetry]\",1.5\r\n")
	assert.NilError(t, err)
	fromQuery, err := serde.FromQueryString[Customer]("Id=1&Name=Ada+Lovelace&Tags=math&Tags=poetry&Score=1.5")
	assert.NilError(t, err)

	assert.DeepEqual(t, fromJSON, ada())
	assert.DeepEqual(t, fromJSV, ada())
	assert.DeepEqual(t, fromCSV, []Customer{ada()})
	assert.DeepEqual(t, fromQuery, ada())
}

func TestCSVScalars(t *testing.T) {
	text, err := serde.ToCSV([]string{"x", "y,z"})
	assert.NilError(t, err)
	assert.Equal(t, text, "x\r\n\"y,z\"\r\n")

	back, err := serde.FromCSV[[]string](text)
	assert.NilError(t, err)
	assert.DeepEqual(t, back, []string{"x", "y,z"})
}

func TestUnknownFormat(t *testing.T) {
	_, err := serde.SerializeToString(ada(), serde.Format("xml"))
	assert.ErrorIs(t, err, shared.ErrUnknownFormat)
	_, err = serde.DeserializeFromString[Customer]("", serde.Format("xml"))
	assert.ErrorIs(t, err, shared.ErrUnknownFormat)

	format, err := serde.ParseFormat("JSON")
	assert.NilError(t, err)
	assert.Equal(t, format, serde.JSON)
	_, err = serde.ParseFormat("yaml")
	assert.ErrorIs(t, err, shared.ErrUnknownFormat)
}

func TestParseErrors(t *testing.T) {
	_, err := serde.FromJSON[Customer](`{"Id":1,`)
	var parseErr *shared.ParseError
	assert.Assert(t, errors.As(err, &parseErr))
	assert.Equal(t, parseErr.Format, "json")

	_, err = serde.FromJSV[Customer](`{Id:abc}`)
	var conversionErr *shared.ConversionError
	assert.Assert(t, errors.As(err, &conversionErr), err)
	assert.ErrorContains(t, err, "Customer.Id")
}

type Node struct {
	Name string
	Next *Node
}

func TestCycles(t *testing.T) {
	node := &Node{Name: "a"}
	node.Next = node
	assert.Assert(t, serde.HasCircularReferences(node))
	assert.Assert(t, !serde.HasCircularReferences(&Node{Name: "b", Next: &Node{Name: "c"}}))

	text, err := serde.SerializeToStringSafe(node, serde.JSON)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Name":"a","Next":"<circular>"}`)

	text, err = serde.ToJSV(node, serde.WithCycleSafety())
	assert.NilError(t, err)
	assert.Equal(t, text, `{Name:a,Next:<circular>}`)

	_, err = serde.ToJSON(node, serde.WithOverrides(func(cfg *config.Config) { cfg.MaxDepth = 16 }))
	assert.ErrorIs(t, err, shared.ErrMaxDepthExceeded)
}

type Profile struct {
	UserName string
	Nickname *string
}

func TestOptions(t *testing.T) {
	profile := Profile{UserName: "ada"}

	text, err := serde.ToJSON(profile)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"UserName":"ada"}`)

	text, err = serde.ToJSON(profile, serde.WithOverrides(func(cfg *config.Config) { cfg.IncludeNullValues = true }))
	assert.NilError(t, err)
	assert.Equal(t, text, `{"UserName":"ada","Nickname":null}`)

	snake := config.Default()
	snake.TextCase = config.TextCaseSnakeCase
	ctx := config.NewContext(context.Background(), snake)
	text, err = serde.ToJSON(profile, serde.WithContext(ctx))
	assert.NilError(t, err)
	assert.Equal(t, text, `{"user_name":"ada"}`)

	// Explicit configuration wins over the context, overrides apply last.
	text, err = serde.ToJSON(profile,
		serde.WithContext(ctx),
		serde.WithConfig(config.Default()),
		serde.WithOverrides(func(cfg *config.Config) { cfg.TextCase = config.TextCaseCamelCase }))
	assert.NilError(t, err)
	assert.Equal(t, text, `{"userName":"ada"}`)

	back, err := serde.FromJSON[Profile](`{"user_name":"ada"}`, serde.WithContext(ctx))
	assert.NilError(t, err)
	assert.Equal(t, back.UserName, "ada")
}

func TestScopedConfiguration(t *testing.T) {
	err := config.Scoped(func(cfg *config.Config) { cfg.TextCase = config.TextCaseSnakeCase }, func() error {
		text, err := serde.ToJSV(Profile{UserName: "ada"})
		assert.NilError(t, err)
		assert.Equal(t, text, `{user_name:ada}`)
		return nil
	})
	assert.NilError(t, err)

	text, err := serde.ToJSV(Profile{UserName: "ada"})
	assert.NilError(t, err)
	assert.Equal(t, text, `{UserName:ada}`)
}

func TestCSVCulture(t *testing.T) {
	french, err := config.CultureFor("fr-FR")
	assert.NilError(t, err)
	withFrench := serde.WithOverrides(func(cfg *config.Config) { cfg.CSV.RealNumberCulture = french })

	text, err := serde.ToCSV([]Customer{ada()}, withFrench)
	assert.NilError(t, err)
	assert.Equal(t, text, "Id,Name,Tags,Score\r\n1,Ada Lovelace,\"[math,poetry]\",\"1,5\"\r\n")

	back, err := serde.FromCSV[[]Customer](text, withFrench)
	assert.NilError(t, err)
	assert.DeepEqual(t, back, []Customer{ada()})

	// Other formats stay invariant.
	text, err = serde.ToJSON(ada(), withFrench)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(text, `"Score":1.5`), text)
}

func TestCSVKeepsEmptyColumns(t *testing.T) {
	text, err := serde.ToCSV([]Profile{{UserName: "ada"}})
	assert.NilError(t, err)
	assert.Equal(t, text, "UserName,Nickname\r\nada,\r\n")
}

type Point struct {
	X, Y int
}

type Marker struct {
	Label string
	At    Point
}

func TestScalarOverrides(t *testing.T) {
	marker := Marker{Label: "home", At: Point{X: 3, Y: 4}}

	text, err := serde.ToJSON(marker)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Label":"home","At":{"X":3,"Y":4}}`)

	serde.RegisterScalarOverride(func(p Point) string {
		return fmt.Sprintf("%d;%d", p.X, p.Y)
	}, func(text string) (Point, error) {
		x, y, ok := strings.Cut(text, ";")
		if !ok {
			return Point{}, errors.Newf("expected x;y, got %q", text)
		}
		px, err := strconv.Atoi(x)
		if err != nil {
			return Point{}, err //nolint:wrapcheck
		}
		py, err := strconv.Atoi(y)
		if err != nil {
			return Point{}, err //nolint:wrapcheck
		}
		return Point{X: px, Y: py}, nil
	})
	t.Cleanup(serde.ClearScalarOverride[Point])

	text, err = serde.ToJSON(marker)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Label":"home","At":"3;4"}`)

	back, err := serde.FromJSON[Marker](text)
	assert.NilError(t, err)
	assert.Equal(t, back, marker)

	_, err = serde.FromJSON[Marker](`{"Label":"home","At":"3"}`)
	assert.ErrorContains(t, err, "expected x;y")

	serde.ClearScalarOverride[Point]()
	text, err = serde.ToJSON(marker)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Label":"home","At":{"X":3,"Y":4}}`)
}

type Shout struct {
	Text string
}

func TestHooks(t *testing.T) {
	var serialized []string
	serde.RegisterHooks(hooks.Set[Shout]{
		OnSerializing: func(s Shout) Shout {
			s.Text = strings.ToUpper(s.Text)
			return s
		},
		OnSerialized: func(s Shout) {
			serialized = append(serialized, s.Text)
		},
		OnDeserialized: func(s Shout) Shout {
			s.Text = strings.TrimSpace(s.Text)
			return s
		},
	})
	t.Cleanup(hooks.Reset[Shout])

	original := Shout{Text: "hey"}
	text, err := serde.ToJSV(original)
	assert.NilError(t, err)
	assert.Equal(t, text, `{Text:HEY}`)
	assert.Equal(t, original.Text, "hey")
	assert.DeepEqual(t, serialized, []string{"hey"})

	back, err := serde.FromJSON[Shout](`{"Text":"  hi  "}`)
	assert.NilError(t, err)
	assert.Equal(t, back.Text, "hi")
}

func TestGetTypeShape(t *testing.T) {
	sh := serde.GetTypeShape(reflect.TypeOf(&Customer{}))
	names := make([]string, len(sh.Members))
	for i, member := range sh.Members {
		names[i] = member.Name
	}
	assert.DeepEqual(t, names, []string{"Id", "Name", "Tags", "Score"})
	assert.Equal(t, sh, serde.GetTypeShape(reflect.TypeOf(Customer{})))
}

func TestStreams(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, serde.SerializeToWriter(ada(), &buf, serde.JSV))

	back, err := serde.DeserializeFromReader(bytes.NewReader(buf.Bytes()), reflect.TypeOf(Customer{}), serde.JSV)
	assert.NilError(t, err)
	assert.DeepEqual(t, back, any(ada()))

	raw, err := serde.SerializeToBytes(ada(), serde.JSON)
	assert.NilError(t, err)
	fromBytes, err := serde.DeserializeFromBytes[Customer](raw, serde.JSON)
	assert.NilError(t, err)
	assert.DeepEqual(t, fromBytes, ada())

	fromReader, err := serde.DeserializeFromReaderTo[*Customer](bytes.NewReader(raw), serde.JSON)
	assert.NilError(t, err)
	assert.DeepEqual(t, *fromReader, ada())
}

func TestUntyped(t *testing.T) {
	value, err := serde.FromJSON[any](`{"a":[1,"x",true,null]}`)
	assert.NilError(t, err)
	assert.DeepEqual(t, value, any(map[string]any{"a": []any{int64(1), "x", true, nil}}))

	value, err = serde.FromJSON[any](`null`)
	assert.NilError(t, err)
	assert.Equal(t, value, nil)
}

func TestDeserializeFromValues(t *testing.T) {
	values := url.Values{}
	values.Set("Id", "1")
	values.Set("Name", "Ada Lovelace")
	values.Add("Tags", "math")
	values.Add("Tags", "poetry")
	values.Set("Score", "1.5")

	customer, err := serde.DeserializeFromValues[Customer](values)
	assert.NilError(t, err)
	assert.DeepEqual(t, customer, ada())
}

func TestMetrics(t *testing.T) {
	success := metrics.Operations.WithLabelValues("jsv", metrics.DirectionSerialize, metrics.StatusSuccess)
	failure := metrics.Operations.WithLabelValues("json", metrics.DirectionDeserialize, metrics.StatusFailure)
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	_, err := serde.ToJSV(ada())
	assert.NilError(t, err)
	_, err = serde.FromJSON[Customer]("{")
	assert.Assert(t, err != nil)

	assert.Equal(t, testutil.ToFloat64(success), beforeSuccess+1)
	assert.Equal(t, testutil.ToFloat64(failure), beforeFailure+1)
}

func TestConcurrentCalls(t *testing.T) {
	cases := map[config.TextCase]string{
		config.TextCaseDefault:   `{UserName:ada}`,
		config.TextCaseCamelCase: `{userName:ada}`,
		config.TextCaseSnakeCase: `{user_name:ada}`,
	}
	var group errgroup.Group
	for i := 0; i < 32; i++ {
		for textCase, expected := range cases {
			group.Go(func() error {
				cfg := config.Default()
				cfg.TextCase = textCase
				text, err := serde.ToJSV(Profile{UserName: "ada"}, serde.WithConfig(cfg))
				if err != nil {
					return err
				}
				if text != expected {
					return errors.Newf("got %s, want %s", text, expected)
				}
				return nil
			})
		}
	}
	assert.NilError(t, group.Wait())
}

type Tagged struct {
	Id    int
	Props *dynamic.Bag
	Attrs map[string]any
}

func TestBagsInEveryFormat(t *testing.T) {
	props := dynamic.New()
	props.Set("a", "x")
	props.Set("b", "y")
	sample := Tagged{Id: 1, Props: props, Attrs: map[string]any{"k": "v"}}

	for _, format := range serde.Formats {
		t.Run(format.String(), func(t *testing.T) {
			text, err := serde.SerializeToString(sample, format)
			require.NoError(t, err)
			back, err := serde.DeserializeFromString[Tagged](text, format)
			require.NoError(t, err, text)
			assert.Equal(t, back.Id, 1)
			assert.DeepEqual(t, back.Props.Keys(), []string{"a", "b"})
			b, err := dynamic.Get[string](back.Props, "b")
			assert.NilError(t, err)
			assert.Equal(t, b, "y")
			assert.DeepEqual(t, back.Attrs, map[string]any{"k": "v"})
		})
	}
}

func TestNullsInJSON(t *testing.T) {
	three := 3
	values := []*int{&three, nil, &three}
	text, err := serde.ToJSON(values)
	assert.NilError(t, err)
	assert.Equal(t, text, `[3,null,3]`)

	one, two, five := 1, 2, 5
	text, err = serde.ToJSON([]*int{&one, &two, &three, nil, &five},
		serde.WithOverrides(func(cfg *config.Config) { cfg.IncludeNullValues = true }))
	assert.NilError(t, err)
	assert.Equal(t, text, `[1,2,3,null,5]`)

	back, err := serde.FromJSON[[]*int](text)
	assert.NilError(t, err)
	assert.Equal(t, len(back), 5)
	assert.Assert(t, back[3] == nil)
	assert.Equal(t, *back[4], 5)

	// Null members are omitted by default.
	text, err = serde.ToJSON(Profile{UserName: "ada", Nickname: nil})
	assert.NilError(t, err)
	assert.Equal(t, text, `{"UserName":"ada"}`)
}

type Figure interface {
	Area() float64
}

type Circle struct {
	R float64
}

func (c Circle) Area() float64 {
	return 3 * c.R * c.R
}

type Square struct {
	Side float64
}

func (s *Square) Area() float64 {
	return s.Side * s.Side
}

type Label struct {
	Text string
}

type Drawing struct {
	Title  string
	Main   Figure
	Others []Figure
	Extra  any
}

func registerFigures(t *testing.T) {
	t.Helper()
	require.NoError(t, serde.RegisterType[Circle]("circle"))
	require.NoError(t, serde.RegisterType[Square]("square"))
	require.NoError(t, serde.RegisterType[Label]("label"))
	t.Cleanup(func() {
		serde.UnregisterType[Circle]()
		serde.UnregisterType[Square]()
		serde.UnregisterType[Label]()
	})
}

func drawing() Drawing {
	return Drawing{
		Title:  "d",
		Main:   Circle{R: 2},
		Others: []Figure{&Square{Side: 3}, Circle{R: 1}},
		Extra:  Circle{R: 4},
	}
}

func TestTypeInfo(t *testing.T) {
	registerFigures(t)

	text, err := serde.ToJSON(drawing())
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Title":"d","Main":{"__type":"circle","R":2},`+
		`"Others":[{"__type":"square","Side":3},{"__type":"circle","R":1}],`+
		`"Extra":{"__type":"circle","R":4}}`)

	for _, format := range serde.Formats {
		t.Run(format.String(), func(t *testing.T) {
			text, err := serde.SerializeToString(drawing(), format)
			require.NoError(t, err)
			back, err := serde.DeserializeFromString[Drawing](text, format)
			require.NoError(t, err, text)
			if diff := cmp.Diff(drawing(), back); diff != "" {
				t.Errorf("round trip through %s (-want +got):\n%s", format, diff)
			}
		})
	}
}

func TestTypeInfoInBags(t *testing.T) {
	registerFigures(t)

	bag := dynamic.New()
	bag.Set("figure", Circle{R: 1})
	text, err := serde.ToJSV(bag)
	assert.NilError(t, err)
	assert.Equal(t, text, `{figure:{__type:circle,R:1}}`)

	back, err := serde.FromJSV[*dynamic.Bag](text)
	assert.NilError(t, err)
	figure, err := dynamic.Get[Circle](back, "figure")
	assert.NilError(t, err)
	assert.Equal(t, figure, Circle{R: 1})
}

func TestExcludeTypeInfo(t *testing.T) {
	registerFigures(t)
	exclude := serde.WithOverrides(func(cfg *config.Config) { cfg.ExcludeTypeInfo = true })

	text, err := serde.ToJSON(Drawing{Title: "d", Extra: Circle{R: 4}}, exclude)
	assert.NilError(t, err)
	assert.Equal(t, text, `{"Title":"d","Extra":{"R":4}}`)

	back, err := serde.FromJSON[Drawing](`{"Extra":{"__type":"circle","R":4}}`, exclude)
	assert.NilError(t, err)
	assert.DeepEqual(t, back.Extra, any(map[string]any{"__type": "circle", "R": int64(4)}))
}

func TestTypeInfoErrors(t *testing.T) {
	registerFigures(t)

	_, err := serde.FromJSON[Drawing](`{"Main":{"__type":"label","Text":"x"}}`)
	assert.ErrorContains(t, err, "does not implement")

	// Unknown names read untyped.
	back, err := serde.FromJSON[Drawing](`{"Extra":{"__type":"hexagon","Side":1}}`)
	assert.NilError(t, err)
	assert.DeepEqual(t, back.Extra, any(map[string]any{"__type": "hexagon", "Side": int64(1)}))

	_, err = serde.FromJSON[Drawing](`{"Main":{"__type":"hexagon"}}`)
	assert.ErrorContains(t, err, "Drawing.Main")
}
