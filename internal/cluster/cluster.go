// Package cluster groups vessel positions into density clusters for the
// map overlay.
package cluster

import (
	"math"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/geo"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// Options controls clustering. Distances are in Unit.
type Options struct {
	MaxLinkDistance float64
	SingleRadius    float64
	MinRadius       float64
	GrowthPerMember float64
	Unit            geo.Unit
}

// DefaultOptions returns the dashboard's clustering parameters in meters.
func DefaultOptions() Options {
	return Options{
		MaxLinkDistance: 500,
		SingleRadius:    150,
		MinRadius:       200,
		GrowthPerMember: 20,
		Unit:            geo.Meters,
	}
}

type point struct {
	id       string
	lat, lng float64
}

// Build groups positions with a greedy single pass. Each unassigned
// position seeds a cluster and absorbs every later unassigned position
// closer than MaxLinkDistance to the seed; the centroid is recomputed once
// after the scan. Positions without usable coordinates are skipped.
func Build(positions []model.Position, opts Options) []model.Cluster {
	points := make([]point, 0, len(positions))
	for _, p := range positions {
		lat, lng, ok := p.Coordinates()
		if !ok {
			continue
		}
		points = append(points, point{id: p.ID, lat: lat, lng: lng})
	}

	clusters := make([]model.Cluster, 0)
	assigned := make([]bool, len(points))

	for i := range points {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []point{points[i]}
		seedLat, seedLng := points[i].lat, points[i].lng

		for j := i + 1; j < len(points); j++ {
			if assigned[j] {
				continue
			}
			if geo.Distance(seedLat, seedLng, points[j].lat, points[j].lng, opts.Unit) < opts.MaxLinkDistance {
				assigned[j] = true
				members = append(members, points[j])
			}
		}

		clusters = append(clusters, finish(members, opts))
	}

	return clusters
}

func finish(members []point, opts Options) model.Cluster {
	var sumLat, sumLng float64
	ids := make([]string, len(members))
	for i, m := range members {
		sumLat += m.lat
		sumLng += m.lng
		ids[i] = m.id
	}
	n := float64(len(members))
	c := model.Cluster{
		Members:   ids,
		Latitude:  sumLat / n,
		Longitude: sumLng / n,
	}

	if len(members) == 1 {
		c.Radius = math.Max(opts.SingleRadius, 0)
		return c
	}

	var farthest float64
	for _, m := range members {
		farthest = math.Max(farthest, geo.Distance(c.Latitude, c.Longitude, m.lat, m.lng, opts.Unit))
	}
	c.Radius = math.Max(farthest+opts.GrowthPerMember*n, opts.MinRadius)
	return c
}
