package server

import (
	"fmt"
	"io"
	"strings"

	kml "github.com/twpayne/go-kml"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// writeClustersKML renders one placemark per cluster at its centroid.
func writeClustersKML(w io.Writer, snap model.Snapshot) error {
	placemarks := make([]kml.Element, 0, len(snap.Clusters)+1)
	placemarks = append(placemarks, kml.Name(fmt.Sprintf("Vessel clusters #%d", snap.Sequence)))
	for i, cl := range snap.Clusters {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(fmt.Sprintf("Cluster %d (%d vessels)", i+1, cl.Count())),
			kml.Description(fmt.Sprintf("radius %.0f m: %s", cl.Radius, strings.Join(cl.Members, ", "))),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: cl.Longitude, Lat: cl.Latitude}),
			),
		))
	}
	return kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  ")
}
