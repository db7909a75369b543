package analyzer

import (
	"context"
	"strings"
	"testing"
)

func analyzePython(t *testing.T, source string) (*Tree, Index) {
	t.Helper()
	tree, index, err := New(LanguageByName("python")).Analyze(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return tree, index
}

func TestExtractClassWithMethods(t *testing.T) {
	source := `class Greeter:
    def greet(self):
        return "hi"

    def farewell(self):
        return "bye"
`
	tree, index := analyzePython(t, source)

	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level definition, got %d", len(tree.Children))
	}
	cls := tree.Children[0]
	if cls.ID != "Greeter" || cls.Kind != KindClass {
		t.Errorf("expected class Greeter, got %s (%s)", cls.ID, cls.Kind)
	}
	if cls.StartLine != 1 || cls.EndLine != 6 {
		t.Errorf("expected span 1-6, got %d-%d", cls.StartLine, cls.EndLine)
	}
	if len(cls.Children) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(cls.Children))
	}

	greet := index["Greeter.greet"]
	if greet == nil {
		t.Fatal("Greeter.greet not in index")
	}
	if greet.Kind != KindMethod || greet.Name != "greet" {
		t.Errorf("unexpected method node: %+v", greet)
	}
	if greet.StartLine != 2 || greet.EndLine != 3 {
		t.Errorf("expected greet span 2-3, got %d-%d", greet.StartLine, greet.EndLine)
	}
	if !strings.Contains(greet.Code, "def greet") {
		t.Errorf("method code span wrong: %q", greet.Code)
	}
}

func TestTopLevelFunction(t *testing.T) {
	_, index := analyzePython(t, "def solo():\n    pass\n")

	def := index["solo"]
	if def == nil {
		t.Fatal("solo not in index")
	}
	if def.Kind != KindFunction {
		t.Errorf("expected function, got %s", def.Kind)
	}
	if len(def.Children) != 0 {
		t.Errorf("functions have no children, got %d", len(def.Children))
	}
}

func TestNestedFunctionIsModuleLevel(t *testing.T) {
	source := `def outer():
    def inner():
        pass
    return inner
`
	tree, index := analyzePython(t, source)

	inner := index["inner"]
	if inner == nil {
		t.Fatal("inner not in index")
	}
	if inner.Kind != KindFunction {
		t.Errorf("nested def should register as a function, got %s", inner.Kind)
	}
	// inner appears at the module root, not under outer.
	found := false
	for _, c := range tree.Children {
		if c.ID == "inner" {
			found = true
		}
	}
	if !found {
		t.Error("inner should be a child of the module root")
	}
	if len(index["outer"].Children) != 0 {
		t.Error("outer should not own inner")
	}
}

func TestDecoratorWidensSpan(t *testing.T) {
	source := `@app.route("/")
def handler():
    pass
`
	_, index := analyzePython(t, source)

	def := index["handler"]
	if def == nil {
		t.Fatal("handler not in index")
	}
	if def.StartLine != 1 {
		t.Errorf("decorator should be part of the span, start=%d", def.StartLine)
	}
	if !strings.Contains(def.Code, "@app.route") {
		t.Errorf("decorator missing from code span: %q", def.Code)
	}
}

func TestDecoratedMethodStaysInClass(t *testing.T) {
	source := `class API:
    @staticmethod
    def ping():
        pass
`
	_, index := analyzePython(t, source)

	if index["API.ping"] == nil {
		t.Error("decorated method should keep its class qualifier")
	}
	if index["ping"] != nil {
		t.Error("decorated method must not also register bare")
	}
}

func TestFirstSeenWinsOnDuplicates(t *testing.T) {
	source := `def dup():
    return 1

def dup():
    return 2
`
	tree, index := analyzePython(t, source)

	if len(tree.Children) != 1 {
		t.Fatalf("duplicate definition must not register twice, got %d", len(tree.Children))
	}
	if !strings.Contains(index["dup"].Code, "return 1") {
		t.Error("first definition should win")
	}
}

func TestConditionalDefBreaksClassContext(t *testing.T) {
	source := `class C:
    if True:
        def maybe(self):
            pass
`
	_, index := analyzePython(t, source)

	// Only directly nested defs are methods.
	if index["C.maybe"] != nil {
		t.Error("def under a conditional is not a direct method")
	}
	if index["maybe"] == nil {
		t.Error("def under a conditional should register as a function")
	}
}

func TestSyntaxFailure(t *testing.T) {
	_, _, err := New(LanguageByName("python")).Analyze(context.Background(), []byte("def broken(:\n"))
	if err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestSourceTooLarge(t *testing.T) {
	a := New(LanguageByName("python"))
	a.MaxSourceBytes = 8
	_, _, err := a.Analyze(context.Background(), []byte("x = 1  # comfortably too long"))
	if err == nil {
		t.Fatal("expected oversized input to be rejected")
	}
}

func TestEmptySource(t *testing.T) {
	tree, index := analyzePython(t, "")
	if len(tree.Children) != 0 || len(index) != 0 {
		t.Error("empty source should yield an empty tree")
	}
}

func TestGoStructAndMethods(t *testing.T) {
	source := `package demo

type Store struct {
	items map[string]int
}

func NewStore() *Store {
	return &Store{items: map[string]int{}}
}

func (s *Store) Get(key string) int {
	return s.items[key]
}
`
	tree, index, err := New(LanguageByName("go")).Analyze(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	cls := index["Store"]
	if cls == nil || cls.Kind != KindClass {
		t.Fatal("Store type not registered as a class")
	}

	get := index["Store.Get"]
	if get == nil || get.Kind != KindMethod {
		t.Fatal("receiver method not registered under its type")
	}
	owned := false
	for _, c := range cls.Children {
		if c.ID == "Store.Get" {
			owned = true
		}
	}
	if !owned {
		t.Error("Store.Get should attach to the Store definition")
	}

	if index["NewStore"] == nil || index["NewStore"].Kind != KindFunction {
		t.Error("NewStore not registered as a function")
	}
	if len(tree.Children) < 2 {
		t.Errorf("expected Store and NewStore at the root, got %d children", len(tree.Children))
	}
}

func TestTypeScriptExportedClass(t *testing.T) {
	source := `export class Service {
  run(): void {
    helper();
  }
}

function helper(): void {}
`
	_, index, err := New(LanguageByName("typescript")).Analyze(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if index["Service"] == nil {
		t.Fatal("exported class should register")
	}
	if index["Service.run"] == nil {
		t.Fatal("method of exported class should keep its qualifier")
	}
	if got := index["Service.run"].Calls; len(got) != 1 || got[0] != "helper" {
		t.Errorf("expected Service.run to call helper, got %v", got)
	}
}

func TestLanguageForPath(t *testing.T) {
	cases := map[string]string{
		"app.py":    "python",
		"main.go":   "go",
		"index.js":  "javascript",
		"index.ts":  "typescript",
		"README.md": "python", // fallback
	}
	for path, want := range cases {
		if got := LanguageForPath(path).Name; got != want {
			t.Errorf("LanguageForPath(%q) = %s, want %s", path, got, want)
		}
	}

	if SupportsPath("notes.txt") {
		t.Error("unknown extension should not be supported")
	}
	if !SupportsPath("app.py") {
		t.Error(".py should be supported")
	}
}
