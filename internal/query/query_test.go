package query

import (
	"reflect"
	"slices"
	"testing"

	"catalog-cli/internal/model"
)

func catalog() model.Catalog {
	return model.Catalog{
		{ID: "c1", Name: "Greetings", Templates: []model.Template{
			{ID: "t1", Title: "Hello", Content: "สวัสดีค่ะ ยินดีให้บริการ"},
			{ID: "t2", Title: "Bye", Content: "ขอบคุณค่ะ"},
		}},
		{ID: "c2", Name: "Claims", Templates: []model.Template{
			{ID: "t1", Title: "Received", Content: "รับเรื่อง hello แล้วค่ะ"},
		}},
		{ID: "c3", Name: "Empty", Templates: []model.Template{}},
	}
}

func titles(ts []model.Template) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func TestFilterEmptyQueryIsIdentity(t *testing.T) {
	c := catalog()
	got := Filter(c, "")
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("Filter(c, \"\") changed the catalog")
	}
}

func TestFilterNoMatchYieldsNoCategories(t *testing.T) {
	if got := Filter(catalog(), "xyz-no-match"); len(got) != 0 {
		t.Fatalf("expected zero categories, got %d", len(got))
	}
}

func TestFilterMatchesTitleOrContentCaseInsensitive(t *testing.T) {
	got := Filter(catalog(), "HELLO")
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}
	if got[0].ID != "c1" || !slices.Equal(titles(got[0].Templates), []string{"Hello"}) {
		t.Fatalf("unexpected first category: %#v", got[0])
	}
	if got[1].ID != "c2" || got[1].Templates[0].Title != "Received" {
		t.Fatalf("content match missing: %#v", got[1])
	}

	thai := Filter(catalog(), "ขอบคุณ")
	if len(thai) != 1 || thai[0].Templates[0].ID != "t2" {
		t.Fatalf("thai content match failed: %#v", thai)
	}
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	c := catalog()
	_ = Filter(c, "bye")
	if len(c[0].Templates) != 2 {
		t.Fatalf("input was modified")
	}
}

func TestSortByTitleUsesCollation(t *testing.T) {
	ts := []model.Template{
		{ID: "1", Title: "banana"},
		{ID: "2", Title: "Apple"},
		{ID: "3", Title: "cherry"},
	}
	got := titles(Sort(ts, SortTitle, Asc))
	want := []string{"Apple", "banana", "cherry"}
	if !slices.Equal(got, want) {
		t.Fatalf("Sort asc = %v, want %v", got, want)
	}

	thai := []model.Template{{Title: "ค"}, {Title: "ก"}, {Title: "ข"}}
	if got := titles(Sort(thai, SortTitle, Asc)); !slices.Equal(got, []string{"ก", "ข", "ค"}) {
		t.Fatalf("thai sort = %v", got)
	}
}

func TestSortByLengthCountsCharacters(t *testing.T) {
	ts := []model.Template{
		{Title: "a", Content: "สวัสดี"}, // 6 runes, 18 bytes
		{Title: "b", Content: "hello world"},
		{Title: "c", Content: "hi"},
	}
	got := titles(Sort(ts, SortLength, Asc))
	if !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("length sort = %v", got)
	}
}

func TestSortByContent(t *testing.T) {
	ts := []model.Template{
		{Title: "x", Content: "zeta"},
		{Title: "y", Content: "Alpha"},
	}
	if got := titles(Sort(ts, SortContent, Asc)); !slices.Equal(got, []string{"y", "x"}) {
		t.Fatalf("content sort = %v", got)
	}
}

func TestSortDescReversesAscForDistinctKeys(t *testing.T) {
	ts := []model.Template{
		{Title: "delta", Content: "1234"},
		{Title: "alpha", Content: "1"},
		{Title: "charlie", Content: "123"},
		{Title: "bravo", Content: "12"},
	}
	for _, f := range Fields {
		asc := Sort(ts, f, Asc)
		desc := Sort(asc, f, Desc)
		rev := slices.Clone(asc)
		slices.Reverse(rev)
		if !slices.Equal(titles(desc), titles(rev)) {
			t.Fatalf("%s: desc %v is not reverse of asc %v", f, titles(desc), titles(asc))
		}
	}
}

func TestSortIsStableForEqualKeys(t *testing.T) {
	ts := []model.Template{
		{ID: "1", Title: "same", Content: "aa"},
		{ID: "2", Title: "same", Content: "bb"},
		{ID: "3", Title: "same", Content: "cc"},
	}
	for _, dir := range []Direction{Asc, Desc} {
		got := Sort(ts, SortTitle, dir)
		if got[0].ID != "1" || got[1].ID != "2" || got[2].ID != "3" {
			t.Fatalf("%s: equal keys reordered: %#v", dir, got)
		}
	}
	if ts[0].ID != "1" {
		t.Fatalf("input modified")
	}
}

func TestSortCatalogKeepsCategoryOrder(t *testing.T) {
	got := SortCatalog(catalog(), SortTitle, Asc)
	if got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("category order changed")
	}
	if !slices.Equal(titles(got[0].Templates), []string{"Bye", "Hello"}) {
		t.Fatalf("templates not sorted: %v", titles(got[0].Templates))
	}
}

func TestParseField(t *testing.T) {
	if f, err := ParseField(" Length "); err != nil || f != SortLength {
		t.Fatalf("ParseField = %q, %v", f, err)
	}
	if _, err := ParseField("size"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if Asc.Toggle() != Desc || Desc.Toggle() != Asc {
		t.Fatalf("Toggle broken")
	}
}

func TestSelectionAndBulkCopy(t *testing.T) {
	visible := Flatten(catalog())
	sel := NewSelection()

	// c1/t1 and c2/t1 share a template id but are different entries.
	sel.Toggle(Key{CategoryID: "c2", TemplateID: "t1"})
	sel.Toggle(Key{CategoryID: "c1", TemplateID: "t1"})
	if sel.Len() != 2 {
		t.Fatalf("Len = %d", sel.Len())
	}

	got := BulkCopy(visible, sel)
	want := "Hello\nสวัสดีค่ะ ยินดีให้บริการ" + CopySeparator + "Received\nรับเรื่อง hello แล้วค่ะ"
	if got != want {
		t.Fatalf("BulkCopy = %q, want %q", got, want)
	}
	if sel.Len() != 0 {
		t.Fatalf("selection not cleared after copy")
	}
}

func TestBulkCopyFollowsViewOrder(t *testing.T) {
	c := SortCatalog(catalog()[:1], SortTitle, Asc)
	visible := Flatten(c)
	sel := NewSelection()
	sel.SelectAll(visible)

	if got := BulkCopy(visible, sel); got != "Bye\nขอบคุณค่ะ"+CopySeparator+"Hello\nสวัสดีค่ะ ยินดีให้บริการ" {
		t.Fatalf("unexpected order: %q", got)
	}
}

func TestToggleAll(t *testing.T) {
	visible := Flatten(catalog())
	sel := NewSelection()

	sel.Toggle(visible[0].Key())
	sel.ToggleAll(visible)
	if !sel.AllSelected(visible) {
		t.Fatalf("expected all selected")
	}
	sel.ToggleAll(visible)
	if sel.Len() != 0 {
		t.Fatalf("expected cleared selection")
	}
	sel.Toggle(visible[1].Key())
	sel.Toggle(visible[1].Key())
	if sel.Has(visible[1].Key()) {
		t.Fatalf("toggle twice should deselect")
	}
}

func TestPruneDropsHiddenEntries(t *testing.T) {
	all := Flatten(catalog())
	sel := NewSelection()
	sel.SelectAll(all)

	visible := Flatten(Filter(catalog(), "bye"))
	sel.Prune(visible)
	if sel.Len() != 1 || !sel.Has(Key{CategoryID: "c1", TemplateID: "t2"}) {
		t.Fatalf("unexpected selection after prune: %d", sel.Len())
	}
}

func TestFuzzySearch(t *testing.T) {
	got := FuzzySearch(catalog(), "ecvd")
	if len(got) == 0 || got[0].Template.Title != "Received" {
		t.Fatalf("expected Received first, got %#v", got)
	}
	if all := FuzzySearch(catalog(), " "); len(all) != 3 {
		t.Fatalf("blank query should return all entries, got %d", len(all))
	}
}

func TestPage(t *testing.T) {
	entries := Flatten(catalog())
	page, idx := Page(entries, 0, 2)
	if len(page) != 2 || idx != 0 {
		t.Fatalf("page 0 = %d entries", len(page))
	}
	page, idx = Page(entries, 5, 2)
	if len(page) != 1 || idx != 1 {
		t.Fatalf("clamped page = %d entries idx %d", len(page), idx)
	}
	if PageCount(0, 12) != 1 || PageCount(13, 12) != 2 {
		t.Fatalf("PageCount wrong")
	}
	if all, _ := Page(entries, 3, 0); len(all) != 3 {
		t.Fatalf("perPage 0 should return all")
	}
}

func TestSortEntriesAcrossCategories(t *testing.T) {
	entries := Flatten(catalog())
	got := SortEntries(entries, SortLength, Desc)
	for i := 1; i < len(got); i++ {
		if len([]rune(got[i-1].Template.Content)) < len([]rune(got[i].Template.Content)) {
			t.Fatalf("entries not in descending length order at %d", i)
		}
	}
	if entries[0].Template.ID != Flatten(catalog())[0].Template.ID {
		t.Fatalf("input modified")
	}
}
