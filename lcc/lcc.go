// Package lcc implements the ellipsoidal Lambert Conformal Conic projection
// with two standard parallels (EPSG method 9802).
//
// Coordinates are projected metres on the easting/northing side and
// decimal degrees on the geographic side. Geographic points are always
// returned as (longitude, latitude).
package lcc

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidParams = errors.New("lcc: invalid projection parameters")
	ErrNotFinite     = errors.New("lcc: non-finite coordinate")
	ErrOutOfRange    = errors.New("lcc: coordinate out of range")
	ErrNoConvergence = errors.New("lcc: latitude did not converge")
)

const (
	epsLat        = 1e-12
	maxIterations = 15
)

// Ellipsoid is defined by its semi-major axis and inverse flattening.
type Ellipsoid struct {
	A    float64 // semi-major axis in metres
	InvF float64 // inverse flattening
}

// WGS84 is the ellipsoid of the WGS 84 datum.
var WGS84 = Ellipsoid{A: 6378137.0, InvF: 298.257223563}

// Eccentricity returns the first eccentricity of the ellipsoid.
func (e Ellipsoid) Eccentricity() float64 {
	if e.InvF == 0 {
		return 0
	}
	f := 1 / e.InvF
	return math.Sqrt(2*f - f*f)
}

// Params describes a two-standard-parallel LCC projection. Angles are in
// decimal degrees, offsets in metres.
type Params struct {
	Lat1          float64 // first standard parallel
	Lat2          float64 // second standard parallel
	Lat0          float64 // latitude of origin
	Lon0          float64 // central meridian
	FalseEasting  float64
	FalseNorthing float64
	Ellipsoid     Ellipsoid
}

// Projection holds the constants derived from Params.
type Projection struct {
	params Params
	e      float64
	n      float64
	aF     float64 // a * F
	rho0   float64
	lon0   float64
}

// New validates p and precomputes the cone constants.
func New(p Params) (*Projection, error) {
	if p.Ellipsoid.A <= 0 {
		return nil, fmt.Errorf("%w: semi-major axis %v", ErrInvalidParams, p.Ellipsoid.A)
	}
	for _, lat := range []float64{p.Lat1, p.Lat2, p.Lat0} {
		if math.IsNaN(lat) || math.Abs(lat) > 90 {
			return nil, fmt.Errorf("%w: latitude %v", ErrInvalidParams, lat)
		}
	}
	if math.Abs(p.Lat1+p.Lat2) < 1e-10 {
		return nil, fmt.Errorf("%w: standard parallels %v and %v are opposite", ErrInvalidParams, p.Lat1, p.Lat2)
	}
	if math.Abs(math.Abs(p.Lat1)-90) < 1e-10 || math.Abs(math.Abs(p.Lat2)-90) < 1e-10 {
		return nil, fmt.Errorf("%w: standard parallel at a pole", ErrInvalidParams)
	}

	e := p.Ellipsoid.Eccentricity()
	phi1, phi2, phi0 := degToRad(p.Lat1), degToRad(p.Lat2), degToRad(p.Lat0)

	m1, m2 := msfn(phi1, e), msfn(phi2, e)
	t1, t2, t0 := tsfn(phi1, e), tsfn(phi2, e), tsfn(phi0, e)

	var n float64
	if math.Abs(phi1-phi2) > 1e-10 {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	} else {
		n = math.Sin(phi1)
	}
	aF := p.Ellipsoid.A * m1 / (n * math.Pow(t1, n))

	rho0 := 0.0
	if math.Abs(math.Abs(phi0)-math.Pi/2) > 1e-10 {
		rho0 = aF * math.Pow(t0, n)
	}

	return &Projection{
		params: p,
		e:      e,
		n:      n,
		aF:     aF,
		rho0:   rho0,
		lon0:   degToRad(p.Lon0),
	}, nil
}

// MustNew is like New but panics on invalid parameters.
func MustNew(p Params) *Projection {
	proj, err := New(p)
	if err != nil {
		panic(err)
	}
	return proj
}

// Params returns the parameters the projection was built from.
func (p *Projection) Params() Params {
	return p.params
}

// Forward projects a geographic (lon, lat) pair to (x, y) metres.
func (p *Projection) Forward(lon, lat float64) (float64, float64, error) {
	if !finite(lon) || !finite(lat) {
		return 0, 0, ErrNotFinite
	}
	if math.Abs(lat) > 90 {
		return 0, 0, fmt.Errorf("%w: latitude %v", ErrOutOfRange, lat)
	}

	phi := degToRad(lat)
	var rho float64
	if math.Abs(math.Abs(phi)-math.Pi/2) > 1e-10 {
		rho = p.aF * math.Pow(tsfn(phi, p.e), p.n)
	} else if phi*p.n <= 0 {
		return 0, 0, fmt.Errorf("%w: pole opposite the cone apex", ErrOutOfRange)
	}

	theta := p.n * adjustLon(degToRad(lon)-p.lon0)
	x := p.params.FalseEasting + rho*math.Sin(theta)
	y := p.params.FalseNorthing + p.rho0 - rho*math.Cos(theta)
	if !finite(x) || !finite(y) {
		return 0, 0, ErrNotFinite
	}
	return x, y, nil
}

// Inverse converts projected (x, y) metres to geographic (lon, lat) degrees.
// Longitude is normalised to [-180, 180].
func (p *Projection) Inverse(x, y float64) (float64, float64, error) {
	if !finite(x) || !finite(y) {
		return 0, 0, ErrNotFinite
	}

	dx := x - p.params.FalseEasting
	dy := p.rho0 - (y - p.params.FalseNorthing)
	if p.n < 0 {
		dx, dy = -dx, -dy
	}
	rho := math.Hypot(dx, dy)
	if p.n < 0 {
		rho = -rho
	}

	var phi, lam float64
	if rho == 0 {
		phi = math.Copysign(math.Pi/2, p.n)
		lam = 0
	} else {
		t := math.Pow(rho/p.aF, 1/p.n)
		var err error
		phi, err = phiFromT(t, p.e)
		if err != nil {
			return 0, 0, err
		}
		lam = math.Atan2(dx, dy) / p.n
	}

	lon := radToDeg(adjustLon(lam + p.lon0))
	lat := radToDeg(phi)
	if !finite(lon) || !finite(lat) {
		return 0, 0, ErrNotFinite
	}
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, fmt.Errorf("%w: (%v, %v)", ErrOutOfRange, lon, lat)
	}
	return lon, lat, nil
}

// msfn is m = cos(phi) / sqrt(1 - e^2 sin^2(phi)).
func msfn(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

// tsfn is t = tan(pi/4 - phi/2) / ((1 - e sin(phi)) / (1 + e sin(phi)))^(e/2).
func tsfn(phi, e float64) float64 {
	s := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-s)/(1+s), e/2)
}

// phiFromT inverts tsfn by fixed-point iteration.
func phiFromT(t, e float64) (float64, error) {
	half := e / 2
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < maxIterations; i++ {
		s := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-s)/(1+s), half))
		if math.Abs(next-phi) < epsLat {
			return next, nil
		}
		phi = next
	}
	return 0, ErrNoConvergence
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// adjustLon wraps a longitude in radians into [-pi, pi].
func adjustLon(x float64) float64 {
	if math.Abs(x) <= math.Pi {
		return x
	}
	return x - 2*math.Pi*math.Floor((x+math.Pi)/(2*math.Pi))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
