package x11

import "testing"

func TestMonitorScale(t *testing.T) {
	tests := []struct {
		name string
		mon  Monitor
		want float64
	}{
		{"unknown size", Monitor{Width: 1920}, 1},
		{"96 dpi", Monitor{Width: 1920, MmWidth: 508}, 1},
		{"low dpi clamps", Monitor{Width: 1024, MmWidth: 600}, 1},
		{"144 dpi", Monitor{Width: 2880, MmWidth: 508}, 1.5},
		{"192 dpi", Monitor{Width: 3840, MmWidth: 508}, 2},
		{"rounds to quarter", Monitor{Width: 2560, MmWidth: 508}, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mon.Scale(); got != tt.want {
				t.Fatalf("Scale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonitorAt(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, X: 0, Y: 0, Width: 1920, Height: 1080},
		{ID: 1, X: 1920, Y: 0, Width: 1280, Height: 1024},
	}
	if mon := MonitorAt(monitors, 2000, 500); mon == nil || mon.ID != 1 {
		t.Fatalf("expected second monitor, got %+v", mon)
	}
	if mon := MonitorAt(monitors, 1919, 1079); mon == nil || mon.ID != 0 {
		t.Fatalf("expected first monitor, got %+v", mon)
	}
	if mon := MonitorAt(monitors, 5000, 0); mon != nil {
		t.Fatalf("expected nil, got %+v", mon)
	}
}
