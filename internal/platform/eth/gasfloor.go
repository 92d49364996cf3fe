package eth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// gasFloorResponse is the shape returned by ethgasstation-style endpoints.
// SafeLow is reported in tenths of a gwei.
type gasFloorResponse struct {
	SafeLow float64 `json:"safeLow"`
}

// FetchGasFloor queries the given endpoint for the current safe-low gas price
// and returns it in gwei.
func FetchGasFloor(ctx context.Context, url string) (float64, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("eth: building gas floor request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("eth: fetching gas floor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("eth: gas floor endpoint returned %d", resp.StatusCode)
	}

	var body gasFloorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("eth: decoding gas floor response: %w", err)
	}

	return body.SafeLow / 10, nil
}
