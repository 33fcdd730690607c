package keys

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		key  string
		want Key
	}{
		{"/3/data", Key{Kind: Object, Category: Channel, ID: 3}},
		{"/0/data", Key{Kind: Object, Category: Channel, ID: 0}},
		{"/3/mask", Key{Kind: Association, Category: Channel, ID: 3, Assoc: Mask}},
		{"/3/show", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubShow}},
		{"/3/data/title", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubTitle}},
		{"/3/data/visible", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubVisible}},
		{"/3/data/log", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubLog}},
		{"/3/base/palette", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubPalette}},
		{"/3/base/min", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubRange}},
		{"/3/base/range-type", Key{Kind: Object, Category: Channel, ID: 3, Sub: SubRange}},
		{"/5/3d/setup", Key{Kind: Association, Category: Channel, ID: 5, Sub: SubSetup, Assoc: View3D}},
		{"/5/3d/labels/x", Key{Kind: Association, Category: Channel, ID: 5, Sub: SubSetup, Assoc: View3D}},
		{"/0/graph/graph/1", Key{Kind: Object, Category: Graph, ID: 1}},
		{"/0/graph/graph/12/visible", Key{Kind: Object, Category: Graph, ID: 12, Sub: SubVisible}},
		{"/0/graph/graph/2/title", Key{Kind: Object, Category: Graph, ID: 2, Sub: SubTitle}},
		{"/sps/0", Key{Kind: Object, Category: Spectra, ID: 0}},
		{"/sps/4/title", Key{Kind: Object, Category: Spectra, ID: 4, Sub: SubTitle}},
		{"/brick/2", Key{Kind: Object, Category: Volume, ID: 2}},
		{"/brick/2/preview", Key{Kind: Association, Category: Volume, ID: 2, Assoc: BrickPreview}},
		{"/brick/2/preview/palette", Key{Kind: Object, Category: Volume, ID: 2, Sub: SubPalette}},
		{"/brick/2/log", Key{Kind: Object, Category: Volume, ID: 2, Sub: SubLog}},
		{"/xyz/7/preview", Key{Kind: Association, Category: XYZ, ID: 7, Assoc: RasterPreview}},
		{"/xyz/7/visible", Key{Kind: Object, Category: XYZ, ID: 7, Sub: SubVisible}},
		{"/lawn/1", Key{Kind: Object, Category: CurveMap, ID: 1}},
		{"/lawn/1/preview", Key{Kind: Association, Category: CurveMap, ID: 1, Assoc: LawnPreview}},
	}
	for _, tc := range cases {
		got := Classify(tc.key)
		if got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	keys := []string{
		"",
		"/",
		"data",
		"/filename",
		"/3",
		"/3/",
		"/-1/data",
		"/+1/data",
		"/03/data",
		"/x/data",
		"/3/data/title/extra",
		"/3/select/line",
		"/3/meta",
		"/3/base",
		"/3/3d",
		"/0/graph/graph/0",
		"/1/graph/graph/1",
		"/0/graph/graph",
		"/0/graph/graph/1/curve",
		"/sps",
		"/sps/1/preview",
		"/sps/1/log",
		"/brick/a",
		"/brick/1/other",
		"/1234567890/data",
	}
	for _, k := range keys {
		if got := Classify(k); got.Kind != Unrecognized {
			t.Errorf("Classify(%q) = %v, want unrecognized", k, got)
		}
	}
}

func TestPrimaryKeyRoundTrip(t *testing.T) {
	for _, c := range Categories {
		id := c.FirstID() + 4
		key := PrimaryKey(c, id)
		got := Classify(key)
		if !got.Primary() || got.Category != c || got.ID != id {
			t.Errorf("Classify(PrimaryKey(%s, %d)) = %v", c, id, got)
		}
		if vk := Classify(VisibleKey(c, id)); vk.Sub != SubVisible || vk.Category != c {
			t.Errorf("VisibleKey(%s) classified as %v", c, vk)
		}
		if tk := Classify(TitleKey(c, id)); tk.Sub != SubTitle || tk.Category != c {
			t.Errorf("TitleKey(%s) classified as %v", c, tk)
		}
	}
}

func TestAssocKeyRoundTrip(t *testing.T) {
	for _, k := range AssocKinds {
		if !k.InStore() {
			continue
		}
		got := Classify(AssocKey(k, 3))
		if got.Kind != Association || got.Assoc != k || got.ID != 3 || got.Category != k.Owner() {
			t.Errorf("Classify(AssocKey(%s, 3)) = %v", k, got)
		}
	}
}

func TestObjectPrefixes(t *testing.T) {
	got := ObjectPrefixes(Graph, 2)
	if len(got) != 1 || got[0] != PrimaryKey(Graph, 2) {
		t.Errorf("ObjectPrefixes(graph, 2) = %v", got)
	}

	got = ObjectPrefixes(Channel, 3)
	for _, want := range []string{PrimaryKey(Channel, 3), AssocKey(Mask, 3), AssocKey(View3D, 3)} {
		found := false
		for _, p := range got {
			if p == want {
				found = true
			}
		}
		if !found {
			t.Errorf("ObjectPrefixes(channel, 3) = %v, missing %q", got, want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCategory("image"); err == nil {
		t.Error("expected error for unknown category")
	}
}
