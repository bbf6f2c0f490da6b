package engine

import "testing"

func TestKernelMajor(t *testing.T) {
	cases := []struct {
		release string
		want    int
		ok      bool
	}{
		{"6.8.0-45-generic", 6, true},
		{"5.15.0", 5, true},
		{"10.1", 10, true},
		{"6", 6, true},
		{"", 0, false},
		{"linux-6.1", 0, false},
	}
	for _, c := range cases {
		got, err := kernelMajor(c.release)
		if (err == nil) != c.ok || got != c.want {
			t.Errorf("kernelMajor(%q) = %d, %v", c.release, got, err)
		}
	}
}

func TestRuntimeSupportIsStable(t *testing.T) {
	first, err1 := IsRuntimeSupported()
	for i := 0; i < 3; i++ {
		got, err := IsRuntimeSupported()
		if got != first || (err == nil) != (err1 == nil) {
			t.Fatalf("call %d = %v, %v; first = %v, %v", i, got, err, first, err1)
		}
	}
}
