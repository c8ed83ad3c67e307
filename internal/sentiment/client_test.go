package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Score(t *testing.T) {
	var gotBody scoreRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]float64{
			"polarity":     -0.6,
			"subjectivity": 0.4,
			"compound":     -0.55,
			"positive":     0.1,
			"negative":     0.6,
			"neutral":      0.3,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	score, err := client.Score(context.Background(), "the update bricked my phone")
	require.NoError(t, err)

	assert.Equal(t, "the update bricked my phone", gotBody.Text)
	assert.Equal(t, -0.6, score.Polarity)
	assert.Equal(t, 0.4, score.Subjectivity)
	assert.Equal(t, -0.55, score.Compound)
	assert.Equal(t, 0.1, score.Positive)
	assert.Equal(t, 0.6, score.Negative)
	assert.Equal(t, 0.3, score.Neutral)
}

func TestClient_RejectsBadComponentSum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]float64{
			"compound": 0.2,
			"positive": 0.5,
			"negative": 0.5,
			"neutral":  0.5,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Score(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component scores")
}

func TestClient_ToleratesSmallComponentDrift(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]float64{
			"compound": 0.2,
			"positive": 0.34,
			"negative": 0.33,
			"neutral":  0.36, // sums to 1.03, inside tolerance
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Score(context.Background(), "some text")
	assert.NoError(t, err)
}

func TestClient_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Score(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Enabled(t *testing.T) {
	assert.False(t, NewClient("").Enabled())
	assert.True(t, NewClient("http://localhost:5000/score").Enabled())
}
