package main

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBuildEventJSON(t *testing.T) {
	payload, err := buildEventJSON(checkoutEvent{
		EventID:       "evt_1",
		Type:          "checkout.session.completed",
		SessionID:     "cs_1",
		PaymentID:     "pay-1",
		AppointmentID: "appt-1",
		ReceiptNumber: "REC-CARD-000123",
		Created:       time.Unix(1716900000, 0),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var evt struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				PaymentStatus string            `json:"payment_status"`
				Metadata      map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Data.Object.PaymentStatus != "paid" || evt.Data.Object.Metadata["payment_id"] != "pay-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestBuildEventJSONRejectsUnknownType(t *testing.T) {
	if _, err := buildEventJSON(checkoutEvent{Type: "invoice.paid"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
