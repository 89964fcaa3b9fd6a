// Package ctd derives data products from CTD samples.
//
// A CTD (conductivity, temperature, depth) instrument reports raw
// triples.  L0 parsing splits an instrument line into a Sample, and
// the L2 transform computes practical salinity per PSS-78.
package ctd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample is one CTD observation.
type Sample struct {
	// Conductivity in mS/cm.
	Conductivity float64 `json:"conductivity"`

	// Temperature in degrees Celsius (ITS-90).
	Temperature float64 `json:"temperature"`

	// Pressure in decibars.
	Pressure float64 `json:"pressure"`
}

// ParseSample splits an instrument output line into a Sample.
//
// The expected form is "C, T, P" with an optional leading '#'.
func ParseSample(line string) (*Sample, error) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("bad sample line %q", line)
	}

	fs := make([]float64, 3)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad sample line %q: %v", line, err)
		}
		fs[i] = f
	}

	return &Sample{
		Conductivity: fs[0],
		Temperature:  fs[1],
		Pressure:     fs[2],
	}, nil
}

// C3515 is the conductivity of standard seawater (S=35, t=15, p=0) in
// mS/cm.
const C3515 = 42.914

// PSS-78 polynomial coefficients.
var (
	sala = []float64{0.0080, -0.1692, 25.3851, 14.0941, -7.0261, 2.7081}
	salb = []float64{0.0005, -0.0056, -0.0066, -0.0375, 0.0636, -0.0144}
	salk = 0.0162

	rtc = []float64{0.6766097, 2.00564e-2, 1.104259e-4, -6.9698e-7, 1.0031e-9}
)

func polyval(cs []float64, x float64) float64 {
	var acc float64
	for i, c := range cs {
		acc += c * math.Pow(x, float64(i))
	}
	return acc
}

// Salinity computes practical salinity (PSU) from conductivity
// (mS/cm), temperature (deg C), and pressure (decibars) per PSS-78.
func Salinity(conductivity, temperature, pressure float64) float64 {
	r := conductivity / C3515

	rt := polyval(rtc, temperature)

	const (
		e1 = 2.070e-5
		e2 = -6.370e-10
		e3 = 3.989e-15
		d1 = 3.426e-2
		d2 = 4.464e-4
		d3 = 4.215e-1
		d4 = -3.107e-3
	)
	rp := 1 + (pressure*(e1+e2*pressure+e3*pressure*pressure))/
		(1+d1*temperature+d2*temperature*temperature+(d3+d4*temperature)*r)

	x := r / (rp * rt)

	var s, ds float64
	for i := 0; i < 6; i++ {
		p := math.Pow(x, float64(i)/2)
		s += sala[i] * p
		ds += salb[i] * p
	}

	dt := temperature - 15
	return s + dt/(1+salk*dt)*ds
}

// L2Salinity computes the salinity data product for a sample.
func (s *Sample) L2Salinity() float64 {
	return Salinity(s.Conductivity, s.Temperature, s.Pressure)
}
