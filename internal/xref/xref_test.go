package xref

import (
	"math"
	"testing"

	"github.com/phobologic/docgen/internal/model"
)

func file(path string, classes ...*model.Class) *model.File {
	f := model.NewFile(path, path, "java")
	for _, c := range classes {
		f.AddClass(c)
	}
	return f
}

func classWithField(name, fieldType string) *model.Class {
	c := model.NewClass(name, model.KindClass)
	if fieldType != "" {
		c.AddField(&model.Field{Name: "f", Type: fieldType})
	}
	return c
}

func project(files ...*model.File) *model.Project {
	p := model.NewProject("test")
	for _, f := range files {
		p.AddFile(f)
	}
	return p
}

func TestBuildCrossFileRef(t *testing.T) {
	t.Parallel()

	p := project(
		file("Bank.java", classWithField("Bank", "List<Account>")),
		file("Account.java", classWithField("Account", "")),
	)

	refs := Build(p).References()
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	if refs[0].Source != "Bank.java" || refs[0].Target != "Account.java" {
		t.Errorf("ref: %+v", refs[0])
	}
	if len(refs[0].Types) != 1 || refs[0].Types[0] != "Account" {
		t.Errorf("types: %v", refs[0].Types)
	}
}

func TestBuildMethodReturnType(t *testing.T) {
	t.Parallel()

	bank := model.NewClass("Bank", model.KindClass)
	bank.AddMethod(model.NewMethod("open", "Account open() {", "Account"))
	p := project(file("Bank.java", bank), file("Account.java", classWithField("Account", "")))

	if refs := Build(p).References(); len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
}

func TestBuildNoSelfEdge(t *testing.T) {
	t.Parallel()

	p := project(file("Node.java", classWithField("Node", "Node")))

	if refs := Build(p).References(); len(refs) != 0 {
		t.Errorf("expected 0 refs (no self-edges), got %d", len(refs))
	}
}

func TestBuildUnresolvedType(t *testing.T) {
	t.Parallel()

	p := project(file("A.java", classWithField("A", "String")))

	if refs := Build(p).References(); len(refs) != 0 {
		t.Errorf("expected 0 refs, got %d", len(refs))
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	p := project(
		file("Bank.java", classWithField("Bank", "Map<String, Account>")),
		file("Account.java", classWithField("Account", "")),
	)
	ix := Build(p)

	got, ok := ix.Resolve("Bank.java", "Map<String, Account>")
	if !ok || got != "Account.java" {
		t.Errorf("Resolve = %q, %v", got, ok)
	}
	if _, ok := ix.Resolve("Account.java", "Account"); ok {
		t.Error("Resolve should not return the referring file")
	}
	if _, ok := ix.Resolve("Bank.java", "int[]"); ok {
		t.Error("Resolve should not match primitive types")
	}
}

func TestRankUniformWithoutRefs(t *testing.T) {
	t.Parallel()

	p := project(file("a.java"), file("b.java"), file("c.java"), file("d.java"))
	ix := Build(p)

	for _, f := range p.Files {
		if got := ix.Rank(Key(f)); math.Abs(got-0.25) > 1e-9 {
			t.Errorf("rank(%s) = %f, want 0.25", f.FilePath, got)
		}
	}
}

func TestRankFavorsReferencedFile(t *testing.T) {
	t.Parallel()

	p := project(
		file("A.java", classWithField("A", "Core")),
		file("B.java", classWithField("B", "Core")),
		file("Core.java", classWithField("Core", "")),
	)
	ix := Build(p)

	ordered := ix.Ordered(p)
	if ordered[0].FilePath != "Core.java" {
		t.Errorf("expected Core.java first, got %s", ordered[0].FilePath)
	}

	var sum float64
	for _, f := range p.Files {
		sum += ix.Rank(Key(f))
	}
	if math.Abs(sum-1.0) > 1e-4 {
		t.Errorf("ranks sum to %f, want ~1.0", sum)
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	ix := Build(nil)
	if len(ix.References()) != 0 {
		t.Error("expected no refs for nil project")
	}
	if got := ix.Rank("x"); got != 0 {
		t.Errorf("rank = %f", got)
	}

	ix = Build(model.NewProject("empty"))
	if len(ix.References()) != 0 {
		t.Error("expected no refs for empty project")
	}
}

func TestKeyFallsBackToName(t *testing.T) {
	t.Parallel()

	if got := Key(model.NewFile("A.java", "", "java")); got != "A.java" {
		t.Errorf("Key = %q", got)
	}
}

func TestTypeNames(t *testing.T) {
	t.Parallel()

	c := classWithField("Bank", "Map<String, Account>")
	c.AddField(&model.Field{Name: "owner", Type: "String"})
	c.AddMethod(model.NewMethod("open", "Account open()", "Account"))
	c.AddMethod(model.NewMethod("all", "Account[] all()", "Account[]"))

	got := TypeNames(c)
	want := []string{"Map", "String", "Account"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}
}
