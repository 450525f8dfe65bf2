package mot

import "testing"

func TestRectCenterAndArea(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 4, H: 6}
	if c := r.Center(); c.X != 12 || c.Y != 23 {
		t.Errorf("center = (%v, %v), want (12, 23)", c.X, c.Y)
	}
	if a := r.Area(); a != 24 {
		t.Errorf("area = %v, want 24", a)
	}
}

func TestRectTranslate(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 4, H: 6}
	got := r.Translate(-3, 5)
	want := Rect{X: 7, Y: 25, W: 4, H: 6}
	if got != want {
		t.Errorf("translate = %+v, want %+v", got, want)
	}
	if r.X != 10 || r.Y != 20 {
		t.Errorf("receiver mutated: %+v", r)
	}
}

func TestRectIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float32
	}{
		{"identical", Rect{0, 0, 10, 10}, Rect{0, 0, 10, 10}, 1},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 10, 10}, 0},
		{"touching edges", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, 0},
		// Overlap 5x10 = 50, union 100+100-50 = 150.
		{"half shift", Rect{0, 0, 10, 10}, Rect{5, 0, 10, 10}, 1.0 / 3.0},
		// Contained: 4x4 = 16 over 100.
		{"contained", Rect{0, 0, 10, 10}, Rect{3, 3, 4, 4}, 0.16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IoU(tt.b); !near(got, tt.want) {
				t.Errorf("IoU = %v, want %v", got, tt.want)
			}
			if got := tt.b.IoU(tt.a); !near(got, tt.want) {
				t.Errorf("IoU not symmetric: %v, want %v", got, tt.want)
			}
		})
	}
}

func near(a, b float32) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}

func TestDetectionSetBoxes(t *testing.T) {
	ds := DetectionSet{
		{Box: Rect{X: 1, Y: 2, W: 3, H: 4}},
		{Box: Rect{X: 5, Y: 6, W: 7, H: 8}},
	}
	boxes := ds.Boxes()
	if len(boxes) != 2 || boxes[0] != ds[0].Box || boxes[1] != ds[1].Box {
		t.Errorf("boxes = %v", boxes)
	}
}
