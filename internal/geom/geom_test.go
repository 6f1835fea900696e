package geom

import "testing"

func TestSignedAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b Dir
		want int
	}{
		{"same", North, North, 0},
		{"north to west", North, West, 90},
		{"north to east", North, East, -90},
		{"opposite", North, South, 180},
		{"east to west", East, West, 180},
		{"south to east", South, East, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignedAngle(tt.a, tt.b); got != tt.want {
				t.Errorf("SignedAngle(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRotateYawAlignsEntrance(t *testing.T) {
	// Rotating the entrance by SignedAngle(-incoming, entrance) must make it
	// face back along the incoming direction.
	for _, incoming := range AllDirections() {
		for _, entrance := range AllDirections() {
			yaw := SignedAngle(incoming.Opposite(), entrance)
			if got := entrance.RotateYaw(yaw); got != incoming.Opposite() {
				t.Errorf("incoming %v entrance %v yaw %d: got %v, want %v",
					incoming, entrance, yaw, got, incoming.Opposite())
			}
		}
	}
}

func TestDirAndVecRotateTogether(t *testing.T) {
	for _, d := range AllDirections() {
		for _, yaw := range []int{0, 90, 180, 270, -90, 450} {
			rotated := d.Vec().RotateYaw(yaw)
			want := d.RotateYaw(yaw).Vec()
			if rotated != want {
				t.Errorf("%v yaw %d: vec %v, dir %v", d, yaw, rotated, want)
			}
		}
	}
}

func TestRotateYawClockwise(t *testing.T) {
	if got := North.RotateYaw(90); got != East {
		t.Errorf("North.RotateYaw(90) = %v, want east", got)
	}
	if got := (Vec2{X: 10, Z: 0}).RotateYaw(90); got != (Vec2{X: 0, Z: -10}) {
		t.Errorf("RotateYaw(90) = %v, want (0, -10)", got)
	}
}

func TestDirFromVec(t *testing.T) {
	if d, ok := DirFromVec(Vec2{X: 0, Z: 10}); !ok || d != North {
		t.Errorf("DirFromVec(0,10) = %v, %v", d, ok)
	}
	if _, ok := DirFromVec(Vec2{X: 3, Z: 4}); ok {
		t.Error("diagonal vector should not snap to a direction")
	}
	if _, ok := DirFromVec(Vec2{}); ok {
		t.Error("zero vector should not snap to a direction")
	}
}

func TestParseDir(t *testing.T) {
	for _, d := range AllDirections() {
		parsed, err := ParseDir(d.String())
		if err != nil || parsed != d {
			t.Errorf("ParseDir(%q) = %v, %v", d.String(), parsed, err)
		}
	}
	if _, err := ParseDir("up"); err == nil {
		t.Error("ParseDir(up) should fail")
	}
}

func TestNormalizeYaw(t *testing.T) {
	tests := map[int]int{0: 0, 90: 90, -90: 270, 360: 0, 450: 90, -180: 180}
	for in, want := range tests {
		if got := NormalizeYaw(in); got != want {
			t.Errorf("NormalizeYaw(%d) = %d, want %d", in, got, want)
		}
	}
}
