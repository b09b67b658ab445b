package geo

import (
	"math"
	"sort"
	"sync"

	"github.com/example/fleet-dispatch/internal/models"
)

// Member kinds tracked in the index.
const (
	KindMechanics = "mechanics"
	KindBookings  = "bookings"
)

// Candidate is an index member with its distance from the query point.
type Candidate struct {
	ID       string
	Loc      models.Coord
	Distance float64 // meters
}

// Index is the minimal lookup surface dispatch and the nearby queries need.
// Nearby returns candidates sorted nearest-first and an empty slice when
// nothing is in range.
type Index interface {
	Upsert(kind, id string, loc models.Coord)
	Remove(kind, id string)
	Nearby(kind string, at models.Coord, radiusMeters float64, limit int) []Candidate
}

// MemoryIndex is a naive scan over an in-process map; in prod use the redis
// implementation.
type MemoryIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]models.Coord
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{members: make(map[string]map[string]models.Coord)}
}

func (g *MemoryIndex) Upsert(kind, id string, loc models.Coord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.members[kind] == nil {
		g.members[kind] = make(map[string]models.Coord)
	}
	g.members[kind][id] = loc
}

func (g *MemoryIndex) Remove(kind, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members[kind], id)
}

func (g *MemoryIndex) Nearby(kind string, at models.Coord, radiusMeters float64, limit int) []Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Candidate, 0)
	for id, loc := range g.members[kind] {
		d := Haversine(at.Lat, at.Lon, loc.Lat, loc.Lon)
		if radiusMeters > 0 && d > radiusMeters {
			continue
		}
		out = append(out, Candidate{ID: id, Loc: loc, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
