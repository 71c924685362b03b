package features

import (
	"errors"
	"reflect"
	"testing"
)

// sampleRFM has three clearly separated customer profiles: an engaged big
// spender, a mid-tier customer, and a dormant low spender.
func sampleRFM() []RFM {
	return []RFM{
		{CustomerID: "CUST_001", Recency: 5, Frequency: 20, Monetary: 2000},
		{CustomerID: "CUST_002", Recency: 30, Frequency: 10, Monetary: 1000},
		{CustomerID: "CUST_003", Recency: 60, Frequency: 5, Monetary: 500},
	}
}

func TestProxyTarget(t *testing.T) {
	eng := testEngineer(Config{Clusters: 3, Seed: 42})

	out, err := eng.ProxyTarget(sampleRFM())
	if err != nil {
		t.Fatalf("ProxyTarget: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d rows, want 3", len(out))
	}

	var highRisk int
	for _, r := range out {
		if r.Cluster < 0 || r.Cluster > 2 {
			t.Errorf("%s: cluster %d out of range", r.CustomerID, r.Cluster)
		}
		if r.IsHighRisk != 0 && r.IsHighRisk != 1 {
			t.Errorf("%s: IsHighRisk %d not binary", r.CustomerID, r.IsHighRisk)
		}
		highRisk += r.IsHighRisk
	}
	if highRisk < 1 {
		t.Error("expected at least one high-risk customer")
	}
	if highRisk == len(out) {
		t.Error("expected at least one customer not flagged high-risk")
	}
}

func TestProxyTarget_DormantSegmentFlagged(t *testing.T) {
	eng := testEngineer(Config{Clusters: 3, Seed: 42})

	// Six customers, two per profile. The dormant pair must carry the flag.
	rfm := []RFM{
		{CustomerID: "ACTIVE_1", Recency: 2, Frequency: 50, Monetary: 5000},
		{CustomerID: "ACTIVE_2", Recency: 4, Frequency: 45, Monetary: 4800},
		{CustomerID: "MID_1", Recency: 25, Frequency: 15, Monetary: 1500},
		{CustomerID: "MID_2", Recency: 28, Frequency: 12, Monetary: 1400},
		{CustomerID: "DORMANT_1", Recency: 90, Frequency: 2, Monetary: 100},
		{CustomerID: "DORMANT_2", Recency: 95, Frequency: 1, Monetary: 80},
	}

	out, err := eng.ProxyTarget(rfm)
	if err != nil {
		t.Fatalf("ProxyTarget: %v", err)
	}

	var flagged, unflagged []RiskRFM
	for _, r := range out {
		if r.IsHighRisk == 1 {
			flagged = append(flagged, r)
		} else {
			unflagged = append(unflagged, r)
		}
	}
	if len(flagged) == 0 || len(unflagged) == 0 {
		t.Fatalf("got %d flagged / %d unflagged, want a proper split", len(flagged), len(unflagged))
	}

	// The flagged segment must dominate on recency and be dominated on
	// frequency and monetary: no unflagged customer may look worse than a
	// flagged one.
	for _, f := range flagged {
		for _, u := range unflagged {
			if u.Recency > f.Recency {
				t.Errorf("unflagged %s has higher recency than flagged %s", u.CustomerID, f.CustomerID)
			}
			if u.Frequency < f.Frequency {
				t.Errorf("unflagged %s has lower frequency than flagged %s", u.CustomerID, f.CustomerID)
			}
			if u.Monetary < f.Monetary {
				t.Errorf("unflagged %s has lower monetary than flagged %s", u.CustomerID, f.CustomerID)
			}
		}
	}

	// The engaged big spenders are never the high-risk segment.
	for _, f := range flagged {
		if f.CustomerID == "ACTIVE_1" || f.CustomerID == "ACTIVE_2" {
			t.Errorf("active customer %s flagged high-risk", f.CustomerID)
		}
	}
}

func TestProxyTarget_Deterministic(t *testing.T) {
	eng := testEngineer(Config{Clusters: 3, Seed: 7})

	first, err := eng.ProxyTarget(sampleRFM())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := eng.ProxyTarget(sampleRFM())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs with identical input and seed differ:\n%+v\n%+v", first, second)
	}

	// A fresh engineer with the same seed must agree too.
	third, err := testEngineer(Config{Clusters: 3, Seed: 7}).ProxyTarget(sampleRFM())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if !reflect.DeepEqual(first, third) {
		t.Error("fresh engineer with identical seed produced different labels")
	}
}

func TestProxyTarget_InsufficientCustomers(t *testing.T) {
	eng := testEngineer(Config{Clusters: 3, Seed: 42})

	tests := []struct {
		name string
		rfm  []RFM
	}{
		{name: "no customers", rfm: nil},
		{name: "one customer", rfm: sampleRFM()[:1]},
		{name: "two customers", rfm: sampleRFM()[:2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.ProxyTarget(tt.rfm)
			if err == nil {
				t.Fatal("expected error for fewer customers than clusters")
			}
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("error = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestStandardizeRFM(t *testing.T) {
	points := standardizeRFM(sampleRFM())
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}

	// Each column standardizes to zero mean.
	for j := 0; j < 3; j++ {
		var sum float64
		for _, p := range points {
			sum += p[j]
		}
		if mean := sum / float64(len(points)); mean > 1e-9 || mean < -1e-9 {
			t.Errorf("column %d mean = %v, want ~0", j, mean)
		}
	}
}

func TestStandardizeRFM_ConstantColumn(t *testing.T) {
	rfm := []RFM{
		{CustomerID: "A", Recency: 10, Frequency: 5, Monetary: 100},
		{CustomerID: "B", Recency: 10, Frequency: 8, Monetary: 200},
		{CustomerID: "C", Recency: 10, Frequency: 2, Monetary: 300},
	}
	points := standardizeRFM(rfm)
	for i, p := range points {
		if p[0] != 0 {
			t.Errorf("point %d: constant recency column standardized to %v, want 0", i, p[0])
		}
	}
}
