package relation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/casegen/model"
)

type fixture struct {
	t   *testing.T
	g   *model.Graph
	mod *model.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	n := 0
	g, err := model.New("Demo",
		model.WithCompiler(New()),
		model.WithIDGenerator(func() model.ID {
			n++
			return model.ID(fmt.Sprintf("e%d", n))
		}),
	)
	require.NoError(t, err)
	f := &fixture{t: t, g: g}
	f.do(func(tx *model.Tx) {
		f.mod = f.create(tx, g.Root().ID, model.KindModule, "core", model.Attrs{})
	})
	return f
}

func (f *fixture) do(fn func(tx *model.Tx)) *model.CommitResult {
	f.t.Helper()
	tx, err := f.g.Begin(f.t.Name())
	require.NoError(f.t, err)
	fn(tx)
	res, err := tx.Commit()
	require.NoError(f.t, err)
	require.Empty(f.t, res.Failures)
	return res
}

func (f *fixture) create(tx *model.Tx, parent model.ID, kind model.Kind, name string, attrs model.Attrs) *model.Entity {
	f.t.Helper()
	e, err := f.g.CreateChild(tx, parent, kind, name, attrs)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) class(tx *model.Tx, name string, bases ...model.Base) *model.Entity {
	return f.create(tx, f.mod.ID, model.KindClass, name, model.Attrs{Class: &model.ClassData{Bases: bases}})
}

func (f *fixture) attr(tx *model.Tx, class *model.Entity, name string, data model.AttributeData) *model.Entity {
	return f.create(tx, class.ID, model.KindAttribute, name, model.Attrs{Attribute: &data})
}

func mult(t *testing.T, s string) model.Multiplicity {
	t.Helper()
	m, err := model.ParseMultiplicity(s)
	require.NoError(t, err)
	return m
}

func (f *fixture) assoc(tx *model.Tx, from, to *model.Entity, fromMult, toMult string, mods ...func(*model.AssociationData)) (*model.Entity, error) {
	data := &model.AssociationData{
		From:    from.ID,
		To:      to.ID,
		FromEnd: model.End{Multiplicity: mult(f.t, fromMult)},
		ToEnd:   model.End{Multiplicity: mult(f.t, toMult)},
	}
	for _, m := range mods {
		m(data)
	}
	return f.g.CreateChild(tx, f.mod.ID, model.KindAssociation, "", model.Attrs{Association: data})
}

// linkMembers returns the names of the association members of class.
func linkMembers(g *model.Graph, class model.ID) []string {
	var out []string
	for _, m := range g.Members(class) {
		if m.Role().Link() {
			out = append(out, m.Name)
		}
	}
	return out
}

func generated(g *model.Graph, class model.ID) []string {
	var out []string
	for _, m := range g.Members(class) {
		if m.Generated() {
			out = append(out, m.Name)
		}
	}
	return out
}

func member(t *testing.T, g *model.Graph, class model.ID, name string) *model.Entity {
	t.Helper()
	for _, m := range g.Members(class) {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("no member %q", name)
	return nil
}

func bidi(a *model.AssociationData)   { a.Bidirectional = true }
func global(a *model.AssociationData) { a.Global = true }

func TestOneToManyScenario(t *testing.T) {
	f := newFixture(t)
	var a, b, assoc *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		var err error
		assoc, err = f.assoc(tx, a, b, "0..1", "1..*")
		require.NoError(t, err)
	})

	assert.Equal(t, []string{"firstB", "lastB", "countB", "addFirstB", "addLastB", "removeB", "deleteAllB"}, linkMembers(f.g, a.ID))
	assert.Equal(t, []string{"prevB", "nextB", "a"}, linkMembers(f.g, b.ID))

	back := member(t, f.g, b.ID, "a")
	assert.Equal(t, model.TypeRef{Class: a.ID, Pointer: true}, back.Attribute.Type)
	assert.Equal(t, model.RoleLinkBack, back.Attribute.Role)
	assert.Equal(t, assoc.ID, back.Origin)
	count := member(t, f.g, a.ID, "countB")
	assert.Equal(t, model.TypeRef{Name: "int"}, count.Attribute.Type)
	assert.True(t, count.Attribute.HasDefault)

	// Both classes unlink on destruction.
	assert.Contains(t, generated(f.g, a.ID), TeardownName)
	assert.Contains(t, generated(f.g, a.ID), "~A")
	assert.Contains(t, generated(f.g, b.ID), TeardownName)
	assert.NotContains(t, generated(f.g, b.ID), SetupName, "the back-pointer is optional")

	f.do(func(tx *model.Tx) {
		require.NoError(t, f.g.Delete(tx, assoc.ID))
	})
	assert.Empty(t, generated(f.g, a.ID), "no relation-derived member survives on A")
	assert.Empty(t, generated(f.g, b.ID), "no relation-derived member survives on B")
}

func TestRequiredBackPointer(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "Order")
		b = f.class(tx, "OrderLine")
		_, err := f.assoc(tx, a, b, "1", "*")
		require.NoError(t, err)
	})

	assert.Equal(t, []string{"prevOrderLine", "nextOrderLine", "order"}, linkMembers(f.g, b.ID))
	back := member(t, f.g, b.ID, "order")
	assert.False(t, back.Attribute.HasDefault)

	setup := member(t, f.g, b.ID, SetupName)
	require.Len(t, setup.Operation.Links, 1)
	assert.Equal(t, model.LayoutList, setup.Operation.Links[0].Layout)
	assert.True(t, setup.Operation.Links[0].Required)

	ctor := member(t, f.g, b.ID, "OrderLine")
	assert.Equal(t, model.RoleDerivedConstructor, ctor.Operation.Role)
	assert.Equal(t, []model.Param{{Name: "order", Type: model.TypeRef{Class: a.ID, Pointer: true}}}, ctor.Operation.Params)
	assert.Equal(t, []model.Init{{Member: "order", Args: []string{"order"}}}, ctor.Operation.Inits)
	assert.Equal(t, ctor.Operation.Params, ConstructorArgs(f.g, b.ID))

	teardown := member(t, f.g, a.ID, TeardownName)
	require.Len(t, teardown.Operation.Links, 1)
	assert.True(t, teardown.Operation.Links[0].Required, "owners delete nodes that require them")
	assert.NotContains(t, generated(f.g, a.ID), "Order", "no derived constructor without arguments")
}

func TestPointerLayout(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		_, err := f.assoc(tx, a, b, "*", "0..1")
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"b", "setB", "getB", "removeB", "moveB", "replaceB"}, linkMembers(f.g, a.ID))
	assert.Empty(t, linkMembers(f.g, b.ID))
	assert.Empty(t, generated(f.g, b.ID), "an unmirrored target has nothing to unlink")

	get := member(t, f.g, a.ID, "getB")
	assert.True(t, get.Operation.Const)
	replace := member(t, f.g, a.ID, "replaceB")
	assert.Equal(t, []string{"old", "item"}, []string{replace.Operation.Params[0].Name, replace.Operation.Params[1].Name})
}

// The layout is keyed on the TO upper bound. A required single TO end is a
// pointer, not a list.
func TestLayoutPolicy(t *testing.T) {
	tests := []struct {
		to     string
		layout model.Layout
	}{
		{"0..1", model.LayoutPointer},
		{"1", model.LayoutPointer},
		{"1..1", model.LayoutPointer},
		{"0..3", model.LayoutList},
		{"1..*", model.LayoutList},
		{"*", model.LayoutList},
	}
	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			f := newFixture(t)
			var a, assoc *model.Entity
			f.do(func(tx *model.Tx) {
				a = f.class(tx, "A")
				b := f.class(tx, "B")
				var err error
				assoc, err = f.assoc(tx, a, b, "0..1", tt.to)
				require.NoError(t, err)
			})
			specs, err := Plan(f.g, assoc.ID)
			require.NoError(t, err)
			require.Len(t, specs, 1)
			assert.Equal(t, tt.layout, specs[0].Layout)
			assert.Equal(t, a.ID, specs[0].Owner)
		})
	}
}

func TestRequiredPointer(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		_, err := f.assoc(tx, a, b, "0..1", "1")
		require.NoError(t, err)
	})
	field := member(t, f.g, a.ID, "b")
	assert.False(t, field.Attribute.HasDefault)
	assert.Contains(t, generated(f.g, a.ID), SetupName)
	ctor := member(t, f.g, a.ID, "A")
	assert.Equal(t, "b", ctor.Operation.Params[0].Name)
}

func TestBidirectionalOneToOne(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		_, err := f.assoc(tx, a, b, "0..1", "0..1", bidi)
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"b", "setB", "getB", "removeB", "moveB", "replaceB"}, linkMembers(f.g, a.ID))
	assert.Equal(t, []string{"a", "setA", "getA", "removeA", "moveA", "replaceA"}, linkMembers(f.g, b.ID))
	assert.Equal(t, "a", member(t, f.g, a.ID, "setB").Operation.Link.Names.Mirror)
	assert.Equal(t, "b", member(t, f.g, b.ID, "setA").Operation.Link.Names.Mirror)
}

func TestBidirectionalManyFrom(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		_, err := f.assoc(tx, a, b, "*", "0..1", bidi)
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"firstA", "lastA", "countA", "addFirstA", "addLastA", "removeA", "deleteAllA"}, linkMembers(f.g, b.ID))
	assert.Equal(t, []string{"prevA", "nextA", "b", "getB"}, linkMembers(f.g, a.ID))
}

func TestGlobalList(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "Registry")
		b = f.class(tx, "Entry")
		_, err := f.assoc(tx, a, b, "0..1", "*", global)
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"prevEntry", "nextEntry"}, linkMembers(f.g, b.ID))
	for _, m := range f.g.Members(a.ID) {
		if m.Role().Link() {
			if m.Attribute != nil {
				assert.True(t, m.Attribute.Static, m.Name)
			} else {
				assert.True(t, m.Operation.Static, m.Name)
			}
		}
	}
}

func TestInvalidAssociations(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		mods     []func(*model.AssociationData)
	}{
		{name: "many to many", from: "*", to: "1..*"},
		{name: "pointer storage with many", from: "0..1", to: "*", mods: []func(*model.AssociationData){
			func(a *model.AssociationData) { a.Storage = model.StoragePointer },
		}},
		{name: "list storage with many owners", from: "*", to: "0..1", mods: []func(*model.AssociationData){
			func(a *model.AssociationData) { a.Storage = model.StorageList },
		}},
		{name: "global and bidirectional", from: "0..1", to: "*", mods: []func(*model.AssociationData){global, bidi}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var a, b *model.Entity
			f.do(func(tx *model.Tx) {
				a = f.class(tx, "A")
				b = f.class(tx, "B")
			})
			f.do(func(tx *model.Tx) {
				_, err := f.assoc(tx, a, b, tt.from, tt.to, tt.mods...)
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrInvalidAssociation)
			})
			assert.Empty(t, f.g.Associations())
			assert.Empty(t, f.g.Members(a.ID))
			assert.Empty(t, f.g.Members(b.ID))
		})
	}
}

func TestNameCollision(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		f.attr(tx, a, "firstB", model.AttributeData{Type: model.TypeRef{Name: "int"}, Default: "0", HasDefault: true})
	})
	f.do(func(tx *model.Tx) {
		_, err := f.assoc(tx, a, b, "0..1", "*")
		require.ErrorIs(t, err, model.ErrInvalidAssociation)
		assert.Contains(t, err.Error(), `"firstB"`)
	})
	assert.Len(t, f.g.Members(a.ID), 1)
}

func TestRenameCollisionRollsBack(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		f.attr(tx, a, "firstC", model.AttributeData{Type: model.TypeRef{Name: "int"}, Default: "0", HasDefault: true})
		_, err := f.assoc(tx, a, b, "0..1", "*")
		require.NoError(t, err)
	})
	before := snapshot(t, f.g)
	members := linkMembers(f.g, a.ID)

	res := f.do(func(tx *model.Tx) {
		err := f.g.Rename(tx, b.ID, "C")
		require.ErrorIs(t, err, model.ErrInvalidAssociation)
		assert.Contains(t, err.Error(), `"firstC"`)
	})
	assert.Equal(t, 0, res.Changes)
	assert.Equal(t, before, snapshot(t, f.g))
	assert.Equal(t, members, linkMembers(f.g, a.ID))
	cur, err := f.g.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", cur.Name)
}

func TestStorageListForSingleTarget(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		_, err := f.assoc(tx, a, b, "0..1", "0..1", func(d *model.AssociationData) { d.Storage = model.StorageList })
		require.NoError(t, err)
	})
	assert.Contains(t, linkMembers(f.g, a.ID), "firstB")
	assert.Contains(t, linkMembers(f.g, b.ID), "nextB")
}

func TestRecompileOnEdit(t *testing.T) {
	f := newFixture(t)
	var a, b, assoc *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		var err error
		assoc, err = f.assoc(tx, a, b, "0..1", "0..1")
		require.NoError(t, err)
	})
	require.Contains(t, linkMembers(f.g, a.ID), "b")

	t.Run("cardinality change switches the layout", func(t *testing.T) {
		f.do(func(tx *model.Tx) {
			cur, _ := f.g.Lookup(assoc.ID)
			data := *cur.Association
			data.ToEnd.Multiplicity = mult(t, "*")
			require.NoError(t, f.g.SetAssociation(tx, assoc.ID, data))
		})
		assert.NotContains(t, linkMembers(f.g, a.ID), "b")
		assert.Contains(t, linkMembers(f.g, a.ID), "firstB")
		assert.Contains(t, generated(f.g, b.ID), TeardownName)
	})

	t.Run("renaming a class renames default roles", func(t *testing.T) {
		f.do(func(tx *model.Tx) {
			require.NoError(t, f.g.Rename(tx, b.ID, "Item"))
		})
		assert.Contains(t, linkMembers(f.g, a.ID), "firstItem")
		assert.NotContains(t, linkMembers(f.g, a.ID), "firstB")
	})

	t.Run("explicit role", func(t *testing.T) {
		side := f.g.Children(assoc.ID)[1]
		f.do(func(tx *model.Tx) {
			require.NoError(t, f.g.Rename(tx, side.ID, "children"))
		})
		assert.Contains(t, linkMembers(f.g, a.ID), "addLastChildren")
	})

	t.Run("recompiling an unchanged association records nothing", func(t *testing.T) {
		res := f.do(func(tx *model.Tx) {
			require.NoError(t, New().Compile(tx, assoc.ID))
		})
		assert.Equal(t, 0, res.Changes)
	})
}

func TestUndoRedoAssociation(t *testing.T) {
	f := newFixture(t)
	var a, b *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
	})
	before := snapshot(t, f.g)
	f.do(func(tx *model.Tx) {
		_, err := f.assoc(tx, a, b, "1", "*")
		require.NoError(t, err)
	})
	after := snapshot(t, f.g)

	_, err := f.g.Undo()
	require.NoError(t, err)
	assert.Equal(t, before, snapshot(t, f.g))
	_, err = f.g.Redo()
	require.NoError(t, err)
	assert.Equal(t, after, snapshot(t, f.g))
	assert.Contains(t, generated(f.g, b.ID), SetupName, "lifecycle members are replayed with the association")
}

func memberIDs(g *model.Graph, class model.ID) map[string]model.ID {
	out := make(map[string]model.ID)
	for _, m := range g.Members(class) {
		out[m.Name] = m.ID
	}
	return out
}

func TestRecompileAfterReplayKeepsMembers(t *testing.T) {
	f := newFixture(t)
	var a, b, assoc *model.Entity
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		b = f.class(tx, "B")
		var err error
		assoc, err = f.assoc(tx, a, b, "0..1", "*")
		require.NoError(t, err)
	})
	recompile := func(t *testing.T) {
		t.Helper()
		ids := memberIDs(f.g, a.ID)
		res := f.do(func(tx *model.Tx) {
			require.NoError(t, New().Compile(tx, assoc.ID))
		})
		assert.Equal(t, 0, res.Changes)
		assert.Equal(t, ids, memberIDs(f.g, a.ID))
	}

	t.Run("undo and redo", func(t *testing.T) {
		_, err := f.g.Undo()
		require.NoError(t, err)
		_, err = f.g.Redo()
		require.NoError(t, err)
		recompile(t)
	})

	t.Run("undone role change", func(t *testing.T) {
		side := f.g.Children(assoc.ID)[1]
		f.do(func(tx *model.Tx) {
			require.NoError(t, f.g.Rename(tx, side.ID, "items"))
		})
		require.Contains(t, linkMembers(f.g, a.ID), "firstItems")
		_, err := f.g.Undo()
		require.NoError(t, err)
		require.Contains(t, linkMembers(f.g, a.ID), "firstB")
		recompile(t)
	})
}

func snapshot(t *testing.T, g *model.Graph) map[model.ID][]byte {
	t.Helper()
	out := make(map[model.ID][]byte)
	g.Walk(g.Root().ID, func(e *model.Entity) bool {
		s, err := g.Snapshot(e.ID)
		require.NoError(t, err)
		out[e.ID] = s
		return true
	})
	return out
}

func TestConstructorArgs(t *testing.T) {
	f := newFixture(t)
	var d, n *model.Entity
	f.do(func(tx *model.Tx) {
		v := f.class(tx, "V")
		f.attr(tx, v, "v", model.AttributeData{Type: model.TypeRef{Name: "int"}})
		n = f.class(tx, "N")
		f.attr(tx, n, "n", model.AttributeData{Type: model.TypeRef{Name: "int"}})
		f.create(tx, n.ID, model.KindOperation, "N", model.Attrs{Operation: &model.OperationData{
			Constructor: true,
			Preferred:   true,
			Params: []model.Param{
				{Name: "n", Type: model.TypeRef{Name: "int"}},
				{Name: "flag", Type: model.TypeRef{Name: "bool"}, Default: "false"},
			},
		}})
		d = f.class(tx, "D", model.Base{Class: n.ID}, model.Base{Class: v.ID, Virtual: true})
		f.attr(tx, d, "d", model.AttributeData{Type: model.TypeRef{Name: "double"}})
		f.attr(tx, d, "s", model.AttributeData{Type: model.TypeRef{Name: "int"}, Static: true})
		f.attr(tx, d, "k", model.AttributeData{Type: model.TypeRef{Name: "int"}, Default: "3", HasDefault: true})
		f.attr(tx, d, "v", model.AttributeData{Type: model.TypeRef{Name: "long"}})
	})

	args := ConstructorArgs(f.g, d.ID)
	names := make([]string, len(args))
	for i, p := range args {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"v", "n", "d", "v"}, names, "virtual bases first, duplicates kept")

	ctor := member(t, f.g, d.ID, "D")
	require.Len(t, ctor.Operation.Params, 4)
	assert.Equal(t, "v2", ctor.Operation.Params[3].Name)
	assert.Equal(t, model.TypeRef{Name: "long"}, ctor.Operation.Params[3].Type)
	require.Len(t, ctor.Operation.Inits, 4)
	assert.Equal(t, []string{"v"}, ctor.Operation.Inits[0].Args)
	assert.Equal(t, []string{"n"}, ctor.Operation.Inits[1].Args)
	assert.Equal(t, model.Init{Member: "v", Args: []string{"v2"}}, ctor.Operation.Inits[3])

	assert.NotContains(t, generated(f.g, n.ID), "N", "a user constructor suppresses the derived one")

	t.Run("base change refreshes derived classes", func(t *testing.T) {
		f.do(func(tx *model.Tx) {
			attr := f.g.ChildrenOf(n.ID, model.KindAttribute)[0]
			require.NoError(t, f.g.Delete(tx, attr.ID))
			require.NoError(t, f.g.SetOperation(tx, f.g.ChildrenOf(n.ID, model.KindOperation)[0].ID, model.OperationData{
				Constructor: true, Preferred: true,
			}))
		})
		ctor := member(t, f.g, d.ID, "D")
		assert.Len(t, ctor.Operation.Params, 3)
	})
}

func TestPlanNames(t *testing.T) {
	assert.Equal(t, "orderLine", defaultRole("OrderLine"))
	assert.Equal(t, "a", defaultRole("A"))
	assert.Equal(t, "Items", suffix("items"))
	n := listNames("b", "a", false, true)
	assert.Equal(t, "getA", n.OwnerGet)
	assert.Equal(t, "a", n.Back)
	n = listNames("b", "a", true, false)
	assert.Empty(t, n.Back)
	p := pointerNames("b", "", true)
	assert.Empty(t, p.Move)
}
