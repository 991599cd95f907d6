package eta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/trip-tracking/internal/models"
)

// OSRMClient performs route/eta lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client

	// Fallback is used when OSRM is unreachable or has no route, so a
	// tracking session always gets some estimate.
	Fallback Estimator
}

func NewOSRMClient(endpoint string, fallback Estimator) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}, Fallback: fallback}
}

// EstimateMinutes queries OSRM /route between points and returns the driving
// duration rounded up to whole minutes.
func (o *OSRMClient) EstimateMinutes(from, to models.Coord) (int, error) {
	// OSRM route query: /route/v1/driving/{lng1},{lat1};{lng2},{lat2}?overview=false
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false", o.Endpoint, from.Lng, from.Lat, to.Lng, to.Lat)
	resp, err := o.Client.Get(url)
	if err != nil {
		return o.fallback(from, to, err)
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Duration float64 `json:"duration"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return o.fallback(from, to, err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return o.fallback(from, to, fmt.Errorf("osrm no route: %v", out.Code))
	}
	return toMinutes(out.Routes[0].Duration), nil
}

func (o *OSRMClient) fallback(from, to models.Coord, err error) (int, error) {
	if o.Fallback == nil {
		return 0, err
	}
	return o.Fallback.EstimateMinutes(from, to)
}
