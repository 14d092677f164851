package mesh

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	test.That(t, o.RadiusEdgeBound, test.ShouldEqual, 2.0)
	test.That(t, o.Epsilon, test.ShouldEqual, 1e-8)
	test.That(t, o.AcuteAngleDegrees, test.ShouldEqual, 60.0)
	test.That(t, o.Seed, test.ShouldEqual, int64(1))
	test.That(t, o.PLC, test.ShouldBeFalse)
	test.That(t, o.Quality, test.ShouldBeFalse)
}

func TestOptionsWithDefaults(t *testing.T) {
	var zero Options
	filled := zero.withDefaults()
	test.That(t, filled, test.ShouldResemble, DefaultOptions())

	custom := Options{RadiusEdgeBound: 1.4, Epsilon: 1e-10, Seed: 99}
	filled = custom.withDefaults()
	test.That(t, filled.RadiusEdgeBound, test.ShouldEqual, 1.4)
	test.That(t, filled.Epsilon, test.ShouldEqual, 1e-10)
	test.That(t, filled.Seed, test.ShouldEqual, int64(99))
	test.That(t, filled.AcuteAngleDegrees, test.ShouldEqual, 60.0)
}
