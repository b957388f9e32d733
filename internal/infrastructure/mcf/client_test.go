package mcf

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	infraconfig "github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := infraconfig.MCFConfig{
		Endpoint:       server.URL,
		AccessKeyID:    "AKIDEXAMPLE",
		SecretKey:      "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		SigningRegion:  "us-east-1",
		RequestTimeout: 5 * time.Second,
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(context.Background(), cfg, nil, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return client
}

func TestClient_SignsRequests(t *testing.T) {
	var gotPath, gotAuth, gotDate string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("X-Amz-Date")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"RequestId":"req-1"}`))
	})

	result, err := client.CancelFulfillmentOrder(context.Background(), "A1SELLER", "100000001")
	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)

	assert.Equal(t, "/FulfillmentOutboundShipment/2010-10-01/CancelFulfillmentOrder", gotPath)
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240301/us-east-1/mws/aws4_request"), gotAuth)
	assert.Contains(t, gotAuth, "SignedHeaders=")
	assert.Contains(t, gotAuth, "Signature=")
	assert.Equal(t, "20240301T120000Z", gotDate)
	assert.Equal(t, "A1SELLER", gotBody["SellerId"])
	assert.Equal(t, "100000001", gotBody["SellerFulfillmentOrderId"])
}

func TestClient_ListInventorySupply(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/FulfillmentInventory/2010-10-01/ListInventorySupply", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{
			"InventorySupplyList": [
				{"SellerSKU":"SKU-1","TotalSupplyQuantity":12,"InStockSupplyQuantity":10,"EarliestAvailability":"Immediately"},
				{"SellerSKU":"SKU-2","TotalSupplyQuantity":0,"InStockSupplyQuantity":0,"EarliestAvailability":""}
			],
			"NextToken":"token-2",
			"RequestId":"req-2"
		}`))
	})

	since := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	list, err := client.ListInventorySupply(context.Background(), fulfillment.SupplyQuery{
		SellerID: "A1SELLER",
		Since:    &since,
	})
	require.NoError(t, err)
	require.Len(t, list.Records, 2)
	assert.Equal(t, "SKU-1", list.Records[0].SellerSKU)
	assert.Equal(t, int64(10), list.Records[0].UsableQty())
	assert.Equal(t, int64(0), list.Records[1].UsableQty())
	assert.Equal(t, "token-2", list.NextToken)
	assert.Equal(t, "req-2", list.RequestID)

	assert.Equal(t, "2024-02-28T00:00:00Z", gotBody["QueryStartDateTime"])
	assert.Equal(t, "Basic", gotBody["ResponseGroup"])
	assert.NotContains(t, gotBody, "SellerSkus")
}

func TestClient_GetFulfillmentOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"FulfillmentOrder": {"SellerFulfillmentOrderId":"100000001","DisplayableOrderId":"100000001","FulfillmentOrderStatus":"COMPLETE_PARTIALLED"},
			"FulfillmentOrderItem": [{"SellerSKU":"SKU-1","Quantity":2,"CancelledQuantity":1}],
			"FulfillmentShipment": [{
				"AmazonShipmentId":"S1",
				"FulfillmentShipmentStatus":"SHIPPED",
				"FulfillmentShipmentItem":[{"SellerSKU":"SKU-1","Quantity":1,"PackageNumber":1}],
				"FulfillmentShipmentPackage":[{"PackageNumber":1,"CarrierCode":"UPS","TrackingNumber":"1Z"}]
			}]
		}`))
	})

	result, err := client.GetFulfillmentOrder(context.Background(), "A1SELLER", "100000001")
	require.NoError(t, err)

	status, ok := result.Status()
	require.True(t, ok)
	assert.Equal(t, fulfillment.RemoteStatusCompletePartialled, status)
	assert.Equal(t, []string{"SKU-1"}, result.CancelledSKUs())
	require.Len(t, result.Shipments, 1)
	assert.Equal(t, "1Z", result.Shipments[0].Packages[0].TrackingNumber)
}

func TestClient_ProviderErrorIsRemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Error":{"Type":"Sender","Code":"InvalidParameterValue","Message":"Requested order not found"},"RequestId":"req-err"}`))
	})

	_, err := client.GetFulfillmentOrder(context.Background(), "A1SELLER", "missing")
	require.Error(t, err)

	remoteErr, ok := fulfillment.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Equal(t, "InvalidParameterValue", remoteErr.ErrorCode)
	assert.Equal(t, "Sender", remoteErr.ErrorType)
	assert.Equal(t, "req-err", remoteErr.RequestID)
	assert.Equal(t, "Requested order not found", remoteErr.Message)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-amzn-RequestId", "hdr-req")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Request is throttled\n"))
	})

	_, err := client.CancelFulfillmentOrder(context.Background(), "A1SELLER", "1")
	remoteErr, ok := fulfillment.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, remoteErr.StatusCode)
	assert.Equal(t, "Service Unavailable", remoteErr.ErrorCode)
	assert.Equal(t, "hdr-req", remoteErr.RequestID)
	assert.Equal(t, "Request is throttled", remoteErr.Message)
}

func TestClient_MalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"InventorySupplyList": "nope"`))
	})

	_, err := client.ListInventorySupplyByNextToken(context.Background(), "A1SELLER", "t")
	remoteErr, ok := fulfillment.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMalformedResponse, remoteErr.ErrorCode)
	assert.Equal(t, http.StatusOK, remoteErr.StatusCode)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := infraconfig.MCFConfig{
		Endpoint:       url,
		AccessKeyID:    "AKID",
		SecretKey:      "SECRET",
		RequestTimeout: time.Second,
	}
	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = client.GetFulfillmentPreview(context.Background(), &fulfillment.FulfillmentPreviewRequest{SellerID: "A1SELLER"})
	remoteErr, ok := fulfillment.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTransport, remoteErr.ErrorCode)
	assert.Equal(t, 0, remoteErr.StatusCode)
}

func TestClient_CreateFulfillmentOrderEncodesRequest(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"RequestId":"req-create"}`))
	})

	result, err := client.CreateFulfillmentOrder(context.Background(), &fulfillment.CreateFulfillmentOrderRequest{
		SellerID:                 "A1SELLER",
		SellerFulfillmentOrderID: "100000001",
		DisplayableOrderID:       "100000001",
		DisplayableOrderDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DisplayableOrderComment:  "Thank you",
		ShippingSpeedCategory:    fulfillment.ShippingSpeedStandard,
		FulfillmentPolicy:        fulfillment.FulfillmentPolicyFillOrKill,
		Items: []fulfillment.CreateFulfillmentOrderItem{
			{SellerSKU: "SKU-1", SellerFulfillmentOrderItemID: "item-1", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted())

	assert.Equal(t, "FillOrKill", gotBody["FulfillmentPolicy"])
	assert.Equal(t, "Standard", gotBody["ShippingSpeedCategory"])
	items, ok := gotBody["Items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func createRequest() *fulfillment.CreateFulfillmentOrderRequest {
	return &fulfillment.CreateFulfillmentOrderRequest{
		SellerID:                 "A1SELLER",
		SellerFulfillmentOrderID: "100000002",
		DisplayableOrderID:       "100000002",
		DisplayableOrderDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DisplayableOrderComment:  "Thank you",
		ShippingSpeedCategory:    fulfillment.ShippingSpeedStandard,
		FulfillmentPolicy:        fulfillment.FulfillmentPolicyFillOrKill,
		Items: []fulfillment.CreateFulfillmentOrderItem{
			{SellerSKU: "SKU-1", SellerFulfillmentOrderItemID: "item-1", Quantity: 1},
		},
	}
}

func TestClient_CreateFulfillmentOrderRequestIDFromHeader(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		body         string
		wantID       string
		wantAccepted bool
	}{
		{"empty body, header id", "hdr-req-1", "", "hdr-req-1", true},
		{"empty object, header id", "hdr-req-2", `{}`, "hdr-req-2", true},
		{"body id wins", "hdr-req-3", `{"RequestId":"body-req"}`, "body-req", true},
		{"no id anywhere", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("x-amzn-RequestId", tt.header)
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := client.CreateFulfillmentOrder(context.Background(), createRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, result.RequestID)
			assert.Equal(t, tt.wantAccepted, result.Accepted())
		})
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), infraconfig.MCFConfig{Region: "unknown"}, nil)
	require.Error(t, err)
}
