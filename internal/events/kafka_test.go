package events

import (
	"testing"

	"orderscan-api/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestPartitionKey_PrefersCustomerID(t *testing.T) {
	event := model.ScanEvent{Barcode: "5712412345678", CustomerID: "cust-42"}
	assert.Equal(t, "cust-42", partitionKey(event))
}

func TestPartitionKey_FallsBackToBarcode(t *testing.T) {
	testCases := []struct {
		name     string
		event    model.ScanEvent
		expected string
	}{
		{"no customer", model.ScanEvent{Barcode: "ELV-CUSH-001"}, "ELV-CUSH-001"},
		{"customer set", model.ScanEvent{Barcode: "ELV-CUSH-001", CustomerID: "cust-7"}, "cust-7"},
		{"empty event", model.ScanEvent{}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, partitionKey(tc.event))
		})
	}
}
