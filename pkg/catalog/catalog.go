// Package catalog holds the section and material tables referenced by beam
// elements. Profiles carry the standard European hot-rolled section
// properties in SI units (m², m⁴, m); materials carry elastic moduli and
// design strengths. The tables are read-only: the model references entries
// by name and never mutates them.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is one hot-rolled steel section.
type Profile struct {
	Name   string  `json:"name"`
	Series string  `json:"series"` // IPE, HEA, HEB, HEM
	A      float64 `json:"a"`      // cross-section area m²
	Iy     float64 `json:"iy"`     // second moment of area m⁴
	H      float64 `json:"h"`      // section height m
}

// Wel returns the elastic section modulus Iy / (h/2).
func (p Profile) Wel() float64 {
	if p.H == 0 {
		return 0
	}
	return p.Iy / (p.H / 2)
}

// Material is a named elastic material. E in Pa, Fy (design yield strength)
// in Pa where applicable, Density in kg/m³, Nu dimensionless.
type Material struct {
	Name    string  `json:"name"`
	E       float64 `json:"e"`
	Nu      float64 `json:"nu"`
	Fy      float64 `json:"fy,omitempty"`
	Density float64 `json:"density"`
}

// Materials are the built-in named materials.
var Materials = map[string]Material{
	"S235":   {Name: "S235", E: 210e9, Nu: 0.3, Fy: 235e6, Density: 7850},
	"S355":   {Name: "S355", E: 210e9, Nu: 0.3, Fy: 355e6, Density: 7850},
	"C25/30": {Name: "C25/30", E: 31e9, Nu: 0.2, Density: 2500},
	"C30/37": {Name: "C30/37", E: 33e9, Nu: 0.2, Density: 2500},
	"GL24h":  {Name: "GL24h", E: 11.5e9, Nu: 0.35, Density: 420},
}

// DefaultMaterial is the material assigned when none is specified.
const DefaultMaterial = "S235"

// DefaultProfile is the section assigned when none is specified.
const DefaultProfile = "IPE 200"

// MaterialByName returns the named material. Lookup is case-insensitive.
func MaterialByName(name string) (Material, error) {
	for k, m := range Materials {
		if strings.EqualFold(k, name) {
			return m, nil
		}
	}
	return Material{}, fmt.Errorf("catalog: unknown material %q", name)
}

// profiles is the full section table, cm-based catalog values converted to
// SI: A [m²] = cm²·1e-4, Iy [m⁴] = cm⁴·1e-8, H [m] = mm·1e-3.
var profiles = []Profile{
	{"IPE 80", "IPE", 7.64e-4, 80.1e-8, 0.080},
	{"IPE 100", "IPE", 10.3e-4, 171e-8, 0.100},
	{"IPE 120", "IPE", 13.2e-4, 318e-8, 0.120},
	{"IPE 140", "IPE", 16.4e-4, 541e-8, 0.140},
	{"IPE 160", "IPE", 20.1e-4, 869e-8, 0.160},
	{"IPE 180", "IPE", 23.9e-4, 1317e-8, 0.180},
	{"IPE 200", "IPE", 28.5e-4, 1943e-8, 0.200},
	{"IPE 220", "IPE", 33.4e-4, 2772e-8, 0.220},
	{"IPE 240", "IPE", 39.1e-4, 3892e-8, 0.240},
	{"IPE 270", "IPE", 45.9e-4, 5790e-8, 0.270},
	{"IPE 300", "IPE", 53.8e-4, 8356e-8, 0.300},
	{"IPE 330", "IPE", 62.6e-4, 11770e-8, 0.330},
	{"IPE 360", "IPE", 72.7e-4, 16270e-8, 0.360},
	{"IPE 400", "IPE", 84.5e-4, 23130e-8, 0.400},
	{"IPE 450", "IPE", 98.8e-4, 33740e-8, 0.450},
	{"IPE 500", "IPE", 115.5e-4, 48200e-8, 0.500},
	{"IPE 550", "IPE", 134.4e-4, 67120e-8, 0.550},
	{"IPE 600", "IPE", 156.0e-4, 92080e-8, 0.600},

	{"HEA 100", "HEA", 21.2e-4, 349e-8, 0.096},
	{"HEA 120", "HEA", 25.3e-4, 606e-8, 0.114},
	{"HEA 140", "HEA", 31.4e-4, 1033e-8, 0.133},
	{"HEA 160", "HEA", 38.8e-4, 1673e-8, 0.152},
	{"HEA 180", "HEA", 45.3e-4, 2510e-8, 0.171},
	{"HEA 200", "HEA", 53.8e-4, 3692e-8, 0.190},
	{"HEA 220", "HEA", 64.3e-4, 5410e-8, 0.210},
	{"HEA 240", "HEA", 76.8e-4, 7763e-8, 0.230},
	{"HEA 260", "HEA", 86.8e-4, 10450e-8, 0.250},
	{"HEA 280", "HEA", 97.3e-4, 13670e-8, 0.270},
	{"HEA 300", "HEA", 112.5e-4, 18260e-8, 0.290},
	{"HEA 320", "HEA", 124.4e-4, 22930e-8, 0.310},
	{"HEA 340", "HEA", 133.5e-4, 27690e-8, 0.330},
	{"HEA 360", "HEA", 142.8e-4, 33090e-8, 0.350},
	{"HEA 400", "HEA", 159.0e-4, 45070e-8, 0.390},
	{"HEA 450", "HEA", 178.0e-4, 63720e-8, 0.440},
	{"HEA 500", "HEA", 197.5e-4, 86970e-8, 0.490},
	{"HEA 550", "HEA", 211.8e-4, 111900e-8, 0.540},
	{"HEA 600", "HEA", 226.5e-4, 141200e-8, 0.590},
	{"HEA 650", "HEA", 241.6e-4, 175200e-8, 0.640},
	{"HEA 700", "HEA", 260.5e-4, 215300e-8, 0.690},
	{"HEA 800", "HEA", 285.8e-4, 303400e-8, 0.790},
	{"HEA 900", "HEA", 320.5e-4, 422100e-8, 0.890},
	{"HEA 1000", "HEA", 346.8e-4, 553800e-8, 0.990},

	{"HEB 100", "HEB", 26.0e-4, 450e-8, 0.100},
	{"HEB 120", "HEB", 34.0e-4, 864e-8, 0.120},
	{"HEB 140", "HEB", 43.0e-4, 1509e-8, 0.140},
	{"HEB 160", "HEB", 54.3e-4, 2492e-8, 0.160},
	{"HEB 180", "HEB", 65.3e-4, 3831e-8, 0.180},
	{"HEB 200", "HEB", 78.1e-4, 5696e-8, 0.200},
	{"HEB 220", "HEB", 91.0e-4, 8091e-8, 0.220},
	{"HEB 240", "HEB", 106.0e-4, 11260e-8, 0.240},
	{"HEB 260", "HEB", 118.4e-4, 14920e-8, 0.260},
	{"HEB 280", "HEB", 131.4e-4, 19270e-8, 0.280},
	{"HEB 300", "HEB", 149.1e-4, 25170e-8, 0.300},
	{"HEB 320", "HEB", 161.3e-4, 30820e-8, 0.320},
	{"HEB 340", "HEB", 170.9e-4, 36660e-8, 0.340},
	{"HEB 360", "HEB", 180.6e-4, 43190e-8, 0.360},
	{"HEB 400", "HEB", 197.8e-4, 57680e-8, 0.400},
	{"HEB 450", "HEB", 218.0e-4, 79890e-8, 0.450},
	{"HEB 500", "HEB", 238.6e-4, 107200e-8, 0.500},
	{"HEB 550", "HEB", 254.1e-4, 136700e-8, 0.550},
	{"HEB 600", "HEB", 270.0e-4, 171000e-8, 0.600},
	{"HEB 650", "HEB", 286.3e-4, 210600e-8, 0.650},
	{"HEB 700", "HEB", 306.4e-4, 256900e-8, 0.700},
	{"HEB 800", "HEB", 334.2e-4, 359100e-8, 0.800},
	{"HEB 900", "HEB", 371.3e-4, 494100e-8, 0.900},
	{"HEB 1000", "HEB", 400.0e-4, 644700e-8, 1.000},

	{"HEM 100", "HEM", 53.2e-4, 1143e-8, 0.120},
	{"HEM 120", "HEM", 66.4e-4, 2018e-8, 0.140},
	{"HEM 140", "HEM", 80.6e-4, 3291e-8, 0.160},
	{"HEM 160", "HEM", 97.1e-4, 5098e-8, 0.180},
	{"HEM 180", "HEM", 113.3e-4, 7483e-8, 0.200},
	{"HEM 200", "HEM", 131.3e-4, 10640e-8, 0.220},
	{"HEM 220", "HEM", 149.4e-4, 14600e-8, 0.240},
	{"HEM 240", "HEM", 199.6e-4, 24290e-8, 0.270},
	{"HEM 260", "HEM", 219.6e-4, 31310e-8, 0.290},
	{"HEM 280", "HEM", 240.2e-4, 39550e-8, 0.310},
	{"HEM 300", "HEM", 303.1e-4, 59200e-8, 0.340},
	{"HEM 320", "HEM", 312.0e-4, 68130e-8, 0.359},
	{"HEM 340", "HEM", 315.8e-4, 76370e-8, 0.377},
	{"HEM 360", "HEM", 318.8e-4, 84870e-8, 0.395},
	{"HEM 400", "HEM", 325.8e-4, 104100e-8, 0.432},
	{"HEM 450", "HEM", 335.4e-4, 131500e-8, 0.478},
	{"HEM 500", "HEM", 344.3e-4, 161900e-8, 0.524},
	{"HEM 550", "HEM", 354.4e-4, 198000e-8, 0.572},
	{"HEM 600", "HEM", 363.7e-4, 237400e-8, 0.620},
	{"HEM 650", "HEM", 373.7e-4, 281700e-8, 0.668},
	{"HEM 700", "HEM", 383.0e-4, 329300e-8, 0.716},
	{"HEM 800", "HEM", 404.3e-4, 442600e-8, 0.814},
	{"HEM 900", "HEM", 423.6e-4, 570400e-8, 0.910},
	{"HEM 1000", "HEM", 444.2e-4, 722300e-8, 1.008},
}

var byName map[string]Profile

func init() {
	byName = make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		byName[normalize(p.Name)] = p
	}
}

// normalize makes profile lookup tolerant of case and spacing, so
// "IPE 200", "IPE200" and "ipe 200" all find the same entry.
func normalize(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, " ", ""))
}

// ProfileByName returns the named profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := byName[normalize(name)]
	if !ok {
		return Profile{}, fmt.Errorf("catalog: unknown profile %q", name)
	}
	return p, nil
}

// Series returns every profile of the given series (IPE, HEA, HEB, HEM),
// sorted by ascending area, the order a weight optimization walks.
func Series(series string) []Profile {
	var out []Profile
	for _, p := range profiles {
		if strings.EqualFold(p.Series, series) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].A < out[j].A })
	return out
}

// All returns every profile, optionally filtered by a name prefix
// ("IPE", "HEA 1").
func All(prefix string) []Profile {
	if prefix == "" {
		out := make([]Profile, len(profiles))
		copy(out, profiles)
		return out
	}
	norm := normalize(prefix)
	var out []Profile
	for _, p := range profiles {
		if strings.HasPrefix(normalize(p.Name), norm) {
			out = append(out, p)
		}
	}
	return out
}
