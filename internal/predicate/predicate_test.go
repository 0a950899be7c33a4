package predicate

import (
	"encoding/json"
	"errors"
	"testing"
)

func testContext() Context {
	return Context{
		PerGame: map[string]any{
			"points": 52.0,
			"ast":    4.0,
			"reb":    6.0,
			"stl":    0.0,
		},
		Season: map[string]any{
			"pts_total":    104.0,
			"games_played": 2.0,
		},
		Career: map[string]any{
			"pts_total":         1500.0,
			"has_triple_double": true,
			"games_played":      82.0,
		},
	}
}

func evalJSON(t *testing.T, expr string) bool {
	t.Helper()
	got, err := EvalRaw(json.RawMessage(expr), testContext())
	if err != nil {
		t.Fatalf("EvalRaw(%s) unexpected error: %v", expr, err)
	}
	return got
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"gte true", `{">=": ["per_game.points", 50]}`, true},
		{"gte boundary", `{">=": ["per_game.points", 52]}`, true},
		{"gte false", `{">=": ["per_game.points", 53]}`, false},
		{"gt", `{">": ["per_game.points", 52]}`, false},
		{"lte", `{"<=": ["per_game.ast", 4]}`, true},
		{"lt", `{"<": ["per_game.ast", 4]}`, false},
		{"literal sides", `{">": [10, 5]}`, true},
		{"missing path is not a number", `{">=": ["per_game.pointz", 50]}`, false},
		{"string side is not a number", `{">=": ["abc", 50]}`, false},
		{"flag side is not a number", `{">=": ["career.has_triple_double", 1]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalJSON(t, tt.expr); got != tt.want {
				t.Errorf("Eval(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEquality(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"number eq", `{"==": ["per_game.ast", 4]}`, true},
		{"number ne", `{"!=": ["per_game.ast", 5]}`, true},
		{"bool eq", `{"==": ["career.has_triple_double", true]}`, true},
		{"cross-type never equal", `{"==": ["per_game.ast", "4"]}`, false},
		{"two missing paths equal", `{"==": ["per_game.nope", "season.nada"]}`, true},
		{"missing vs number", `{"==": ["per_game.nope", 0]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalJSON(t, tt.expr); got != tt.want {
				t.Errorf("Eval(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestBooleanOperators(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"and all true", `{"and": [{">=": ["per_game.points", 50]}, {">=": ["per_game.reb", 5]}]}`, true},
		{"and one false", `{"and": [{">=": ["per_game.points", 50]}, {">=": ["per_game.reb", 50]}]}`, false},
		{"and empty is true", `{"and": []}`, true},
		{"or empty is false", `{"or": []}`, false},
		{"or one true", `{"or": [{">": ["per_game.stl", 5]}, {">": ["per_game.points", 5]}]}`, true},
		{"not", `{"not": {">": ["per_game.points", 100]}}`, true},
		{"not wrong arity", `{"not": [true, false]}`, false},
		{"flag as boolean", `{"and": ["career.has_triple_double"]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalJSON(t, tt.expr); got != tt.want {
				t.Errorf("Eval(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"add inside comparison", `{">=": [{"+": ["per_game.points", "per_game.ast"]}, 56]}`, true},
		{"sub", `{"==": [{"-": ["per_game.points", 2]}, 50]}`, true},
		{"mul", `{">": [{"*": ["per_game.ast", "per_game.reb"]}, 20]}`, true},
		{"div", `{"==": [{"/": ["season.pts_total", "season.games_played"]}, 52]}`, true},
		{"div by zero is zero", `{"==": [{"/": ["per_game.points", "per_game.stl"]}, 0]}`, true},
		{"non-zero arithmetic is truthy", `{"and": [{"+": [1, 1]}]}`, true},
		{"zero arithmetic is falsy", `{"or": [{"-": [3, 3]}]}`, false},
		{"arithmetic over missing path is falsy", `{"and": [{"+": ["per_game.nope", 1]}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalJSON(t, tt.expr); got != tt.want {
				t.Errorf("Eval(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestHas(t *testing.T) {
	ctx := Context{
		PerGame: map[string]any{
			"points": 10.0,
			"meta":   map[string]any{"source": "feed"},
		},
		Season: map[string]any{},
		Career: map[string]any{},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"nested object has key", `{"has": ["per_game.meta", "source"]}`, true},
		{"nested object missing key", `{"has": ["per_game.meta", "origin"]}`, false},
		{"first arg not an object", `{"has": ["per_game.points", "source"]}`, false},
		{"second arg not a string", `{"has": ["per_game.meta", 3]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalRaw(json.RawMessage(tt.expr), ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%s) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestDeepPathLookup(t *testing.T) {
	ctx := Context{
		PerGame: map[string]any{
			"meta": map[string]any{"source": map[string]any{"trusted": true}},
		},
	}
	got, err := EvalRaw(json.RawMessage(`{"==": ["per_game.meta.source.trusted", true]}`), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected deep path lookup to resolve")
	}
}

func TestArityMismatchIsFalse(t *testing.T) {
	exprs := []string{
		`{">=": ["per_game.points"]}`,
		`{">=": ["per_game.points", 50, 60]}`,
		`{"+": [1]}`,
		`{"has": ["per_game.meta"]}`,
	}
	for _, expr := range exprs {
		if got := evalJSON(t, expr); got {
			t.Errorf("Eval(%s) = true, want false on arity mismatch", expr)
		}
	}
}

func TestMalformed(t *testing.T) {
	exprs := []string{
		`{"frobnicate": [1, 2]}`,
		`{">=": ["a", 1], "<=": ["b", 2]}`,
		`[1, 2, 3]`,
		`null`,
		`not json at all`,
	}
	for _, expr := range exprs {
		got, err := EvalRaw(json.RawMessage(expr), testContext())
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("EvalRaw(%s) error = %v, want ErrMalformed", expr, err)
		}
		if got {
			t.Errorf("EvalRaw(%s) = true, want false", expr)
		}
	}
}

func TestSingleArgumentWrapping(t *testing.T) {
	// An operator value that is not an array is treated as a single argument.
	if got := evalJSON(t, `{"not": false}`); !got {
		t.Error("expected {\"not\": false} to be true")
	}
}

func TestEvalNilNode(t *testing.T) {
	if Eval(nil, testContext()) {
		t.Error("nil node must evaluate false")
	}
}

func TestUnknownScopeIsUndefined(t *testing.T) {
	if got := evalJSON(t, `{"==": ["lifetime.points", "lifetime.points"]}`); !got {
		t.Error("two identical missing lookups should compare equal")
	}
	if got := evalJSON(t, `{">=": ["lifetime.points", 0]}`); got {
		t.Error("missing scope must not compare as a number")
	}
}
