package routes_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services/testhelpers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/docs"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest/routes"
)

type testServer struct {
	h       *testhelpers.Harness
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	h := testhelpers.NewHarness(t)

	reconciliation := services.NewReconciliationService(h.Ledger, h.Gateway, h.Metrics, h.Logger)
	hs := handlers.NewHandlers(
		services.NewOrderService(h.Ledger, h.Gateway, h.Locker, "INR", h.Logger),
		reconciliation,
		services.NewVerificationService(h.Ledger, h.Logger),
		services.NewSettlementService(h.Ledger, h.Recharge, 0, 0, h.Logger),
		services.NewQueryService(h.Store, h.Recharge),
		services.NewRechargeExecutionService(h.Recharge, h.Logger),
		h.Logger,
	)

	apiDoc, err := docs.Load(context.Background(), "http://ledger.test/")
	require.NoError(t, err)

	router, err := routes.NewRouter(routes.Options{
		Server: config.ServerConfig{
			RequestTimeout:    5 * time.Second,
			SettlementTimeout: 5 * time.Second,
		},
		HTTP: config.HTTPConfig{
			AllowedOrigins: []string{"*"},
			RateLimit:      1000,
		},
		Handlers: hs,
		Metrics:  h.Metrics,
		Gatherer: h.Registry,
		Docs:     apiDoc,
		Logger:   h.Logger,
	})
	require.NoError(t, err)

	return &testServer{h: h, handler: router}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, code, body["code"])
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, rec.Body.String(), "goroutine")
}

func TestCreateOrder_Success(t *testing.T) {
	s := newTestServer(t)
	s.h.Gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req application.GatewayOrderRequest) bool {
		return req.OrderID == "ORD_web_1" && req.Amount.String() == "100.5" && req.MethodFilter == "upi"
	})).Return(&application.GatewayOrderResponse{
		SessionID:      "session_abc",
		GatewayOrderID: "2149460581",
		OrderStatus:    "ACTIVE",
	}, nil).Once()

	rec := s.do(t, http.MethodPost, "/payment/create-order",
		`{"amount":"100.50","method":"upi","orderId":"ORD_web_1","customerName":"Asha"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ORD_web_1", body["orderId"])
	assert.Equal(t, "session_abc", body["paymentSessionId"])
	assert.NotContains(t, rec.Body.String(), "2149460581")

	tx, err := s.h.Store.FindByOrderID(context.Background(), "ORD_web_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, "session_abc", tx.SessionID())
}

func TestCreateOrder_IdempotencyKeyFromHeader(t *testing.T) {
	s := newTestServer(t)
	s.h.Locker.On("Acquire", mock.Anything, "create-order:hdr-key").Return(true, nil).Once()
	s.h.Gateway.On("CreateOrder", mock.Anything, mock.Anything).Return(&application.GatewayOrderResponse{
		SessionID: "session_hdr",
	}, nil).Once()

	first := s.do(t, http.MethodPost, "/payment/create-order", `{"amount":250,"method":"CARD"}`,
		map[string]string{"Idempotency-Key": "hdr-key"})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := s.do(t, http.MethodPost, "/payment/create-order", `{"amount":250,"method":"CARD"}`,
		map[string]string{"Idempotency-Key": "hdr-key"})
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	assert.Equal(t, decode(t, first)["orderId"], decode(t, second)["orderId"])
	assert.Equal(t, "session_hdr", decode(t, second)["paymentSessionId"])
	s.h.Gateway.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestCreateOrder_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":-5,"method":"upi"}`},
		{"too many decimals", `{"amount":"10.999","method":"upi"}`},
		{"unknown method", `{"amount":10,"method":"cheque"}`},
		{"bad order id", `{"amount":10,"method":"upi","orderId":"a b"}`},
		{"malformed body", `{"amount":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/payment/create-order", tc.body, nil)
			requireErrorEnvelope(t, rec, http.StatusBadRequest, application.ErrCodeValidation)
		})
	}
}

func TestCreateOrder_GatewayFailureLeavesPending(t *testing.T) {
	s := newTestServer(t)
	s.h.Gateway.On("CreateOrder", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused")).Once()

	rec := s.do(t, http.MethodPost, "/payment/create-order", `{"amount":10,"method":"upi","orderId":"ORD_down"}`, nil)
	requireErrorEnvelope(t, rec, http.StatusInternalServerError, application.ErrCodeGatewayUnavailable)

	tx, err := s.h.Store.FindByOrderID(context.Background(), "ORD_down")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Empty(t, tx.SessionID())
}

func TestWebhook_AppliesAndAcknowledges(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedPending(t, "ORD_hook", "session_hook")

	payload := `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"ORD_hook"}}}`
	s.h.Gateway.On("VerifyWebhookSignature", []byte(payload), "1700000000", "c2ln").Return(nil).Once()
	s.h.Gateway.On("ParseWebhookEvent", []byte(payload)).Return(&application.WebhookEvent{
		Type:      application.EventPaymentSuccess,
		OrderID:   "ORD_hook",
		Status:    "SUCCESS",
		PaymentID: "885160",
		Raw:       []byte(payload),
	}, nil).Once()

	rec := s.do(t, http.MethodPost, "/payment/verify", payload, map[string]string{
		"x-webhook-timestamp": "1700000000",
		"x-webhook-signature": "c2ln",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())

	tx, err := s.h.Store.FindByOrderID(context.Background(), "ORD_hook")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, tx.Status)
}

func TestWebhook_UnknownOrderIsAcknowledged(t *testing.T) {
	s := newTestServer(t)
	s.h.Gateway.On("VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	s.h.Gateway.On("ParseWebhookEvent", mock.Anything).Return(&application.WebhookEvent{
		Type:    application.EventPaymentFailed,
		OrderID: "ORD_ghost",
	}, nil).Once()

	rec := s.do(t, http.MethodPost, "/payment/verify", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestWebhook_InvalidSignature(t *testing.T) {
	s := newTestServer(t)
	s.h.Gateway.On("VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("signature mismatch")).Once()

	rec := s.do(t, http.MethodPost, "/payment/verify", `{"type":"PAYMENT_SUCCESS_WEBHOOK"}`, nil)
	requireErrorEnvelope(t, rec, http.StatusUnauthorized, application.ErrCodeInvalidSignature)
}

func TestRedirect_ReconcilesPendingOrder(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedPending(t, "ORD_back", "session_back")
	s.h.Gateway.On("FetchOrder", mock.Anything, "ORD_back").Return(&application.GatewayOrder{
		OrderID: "ORD_back",
		Status:  application.GatewayOrderPaid,
	}, nil).Once()

	rec := s.do(t, http.MethodGet, "/payment/verify?order_id=ORD_back", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	transaction := decode(t, rec)["transaction"].(map[string]any)
	assert.Equal(t, "success", transaction["status"])
}

func TestRedirect_MissingOrderID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/payment/verify", "", nil)
	requireErrorEnvelope(t, rec, http.StatusBadRequest, application.ErrCodeValidation)
}

func TestVerifyManual(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedPending(t, "ORD_utr", "")

	rec := s.do(t, http.MethodPost, "/payment/verify-manual",
		`{"orderId":"ORD_utr","transactionId":"412345678901"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Payment submitted for verification", body["message"])
	assert.Equal(t, "ORD_utr", body["orderId"])

	tx, err := s.h.Store.FindByOrderID(context.Background(), "ORD_utr")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingVerification, tx.Status)
	assert.Equal(t, "412345678901", tx.VerificationReference)
}

func TestVerifyManual_TerminalRecordConflicts(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedWithStatus(t, "ORD_done", domain.StatusSuccess)

	rec := s.do(t, http.MethodPost, "/payment/verify-manual",
		`{"orderId":"ORD_done","transactionId":"412345678901"}`, nil)
	requireErrorEnvelope(t, rec, http.StatusConflict, application.ErrCodeInvalidTransition)
}

func TestVerifyManual_UnknownOrder(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/payment/verify-manual",
		`{"orderId":"ORD_nobody","transactionId":"412345678901"}`, nil)
	requireErrorEnvelope(t, rec, http.StatusNotFound, application.ErrCodeNotFound)

	_, err := s.h.Store.FindByOrderID(context.Background(), "ORD_nobody")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestInitiateThenSettleWithRecharge(t *testing.T) {
	s := newTestServer(t)
	s.h.Recharge.On("Execute", mock.Anything, mock.MatchedBy(func(req application.RechargeRequest) bool {
		return req.Mobile == "9876543210" && req.Operator == "Airtel"
	})).Return(&domain.RechargeResult{
		Status:        domain.RechargeSuccess,
		TransactionID: "RCH1700000000000ABCDE",
		Message:       "Recharge completed successfully (TEST MODE)",
	}, nil).Once()

	initiated := s.do(t, http.MethodPost, "/api/payments/initiate",
		`{"name":"Ravi","amount":199,"paymentMethod":"upi","mobile":"9876543210","operator":"Airtel","planId":"AIR199"}`, nil)
	require.Equal(t, http.StatusOK, initiated.Code, initiated.Body.String())
	initBody := decode(t, initiated)
	assert.Equal(t, "Payment initiated successfully", initBody["message"])
	transactionID := initBody["transactionId"].(string)

	settled := s.do(t, http.MethodPost, "/api/bank/settlement", `{"transactionId":"`+transactionID+`"}`, nil)
	require.Equal(t, http.StatusOK, settled.Code, settled.Body.String())
	body := decode(t, settled)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, transactionID, body["transactionId"])
	assert.Equal(t, "SETTLED", body["status"])
	assert.Equal(t, "Bank settlement completed successfully", body["message"])
	assert.NotEmpty(t, body["settlementTime"])
	recharge := body["recharge"].(map[string]any)
	assert.Equal(t, "SUCCESS", recharge["status"])

	again := s.do(t, http.MethodPost, "/api/bank/settlement", `{"transactionId":"`+transactionID+`"}`, nil)
	require.Equal(t, http.StatusOK, again.Code)
	s.h.Recharge.AssertNumberOfCalls(t, "Execute", 1)
}

func TestSettlement_Errors(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedWithStatus(t, "ORD_failed", domain.StatusFailed)

	requireErrorEnvelope(t, s.do(t, http.MethodPost, "/api/bank/settlement", `{}`, nil),
		http.StatusBadRequest, application.ErrCodeValidation)
	requireErrorEnvelope(t, s.do(t, http.MethodPost, "/api/bank/settlement", `{"transactionId":"missing"}`, nil),
		http.StatusNotFound, application.ErrCodeNotFound)
	requireErrorEnvelope(t, s.do(t, http.MethodPost, "/api/bank/settlement", `{"transactionId":"ORD_failed"}`, nil),
		http.StatusConflict, application.ErrCodeInvalidTransition)
}

func TestStatus_HidesGatewayInternals(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedPending(t, "ORD_view", "session_view")
	_, err := s.h.Store.Update(context.Background(), "ORD_view", domain.TransactionPatch{
		GatewayOrderID: domain.Ptr("cf_secret_order"),
		GatewayPayload: []byte(`{"secret":"payload"}`),
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/payment/status/ORD_view", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "cf_secret_order")
	assert.NotContains(t, rec.Body.String(), "payload")
	transaction := decode(t, rec)["transaction"].(map[string]any)
	assert.Equal(t, "ORD_view", transaction["orderId"])
	assert.Equal(t, 100.0, transaction["amount"])
	assert.Equal(t, "INR", transaction["currency"])
	assert.Equal(t, "pending", transaction["status"])
}

func TestStatus_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/payment/status/ORD_missing", "", nil)
	requireErrorEnvelope(t, rec, http.StatusNotFound, application.ErrCodeNotFound)
}

func TestReceipt_JSONAndPDF(t *testing.T) {
	s := newTestServer(t)
	tx := s.h.SeedPending(t, "ORD_receipt", "")
	_, err := s.h.Store.Update(context.Background(), "ORD_receipt", domain.TransactionPatch{
		Status:                domain.Ptr(domain.StatusPendingVerification),
		GatewayPaymentID:      domain.Ptr("UTR998877"),
		VerificationReference: domain.Ptr("UTR998877"),
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/payment/receipt/UTR998877", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := decode(t, rec)["receipt"].(map[string]any)
	assert.Equal(t, "UTR998877", receipt["transactionId"])
	assert.Equal(t, "ORD_receipt", receipt["orderId"])
	assert.Equal(t, 100.0, receipt["amount"])

	pdf := s.do(t, http.MethodGet, "/payment/receipt/"+tx.ID+"?format=pdf", "", nil)
	require.Equal(t, http.StatusOK, pdf.Code, pdf.Body.String())
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(pdf.Body.String(), "%PDF"))
	assert.Contains(t, pdf.Header().Get("Content-Disposition"), "receipt-UTR998877.pdf")
}

func TestRechargeStatus(t *testing.T) {
	s := newTestServer(t)
	s.h.Recharge.On("Status", mock.Anything, "RCH123").Return(&domain.RechargeResult{
		Status:        domain.RechargeUnknown,
		TransactionID: "RCH123",
		Message:       "Unable to check status",
	}, nil).Once()

	rec := s.do(t, http.MethodGet, "/api/recharge/status/RCH123", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recharge := decode(t, rec)["recharge"].(map[string]any)
	assert.Equal(t, "UNKNOWN", recharge["status"])
}

func TestExecuteRecharge(t *testing.T) {
	s := newTestServer(t)
	s.h.Recharge.On("Execute", mock.Anything, mock.MatchedBy(func(req application.RechargeRequest) bool {
		return req.Mobile == "9876543210" && req.Operator == "Jio" && req.Amount.StringFixed(2) == "239.00"
	})).Return(&domain.RechargeResult{
		Status:        domain.RechargeSuccess,
		TransactionID: "RCH42",
		Message:       "Recharge completed successfully",
	}, nil).Once()

	rec := s.do(t, http.MethodPost, "/api/recharge/execute",
		`{"mobile":"9876543210","operator":"Jio","amount":239,"planId":"JIO239"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	recharge := body["recharge"].(map[string]any)
	assert.Equal(t, "SUCCESS", recharge["status"])
	assert.Equal(t, "RCH42", recharge["transactionId"])
}

func TestExecuteRecharge_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"nine digit mobile", `{"mobile":"987654321","operator":"Jio","amount":239}`},
		{"mobile with letters", `{"mobile":"98765abcde","operator":"Jio","amount":239}`},
		{"missing operator", `{"mobile":"9876543210","amount":239}`},
		{"missing amount", `{"mobile":"9876543210","operator":"Jio"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/api/recharge/execute", tc.body, nil)
			requireErrorEnvelope(t, rec, http.StatusBadRequest, application.ErrCodeValidation)
			s.h.Recharge.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteRecharge_Declined(t *testing.T) {
	s := newTestServer(t)
	s.h.Recharge.On("Execute", mock.Anything, mock.Anything).Return(&domain.RechargeResult{
		Status:  domain.RechargeFailed,
		Message: "Operator rejected plan",
	}, nil).Once()

	rec := s.do(t, http.MethodPost, "/api/recharge/execute",
		`{"mobile":"9876543210","operator":"Jio","amount":239}`, nil)

	requireErrorEnvelope(t, rec, http.StatusBadRequest, application.ErrCodeRechargeFailed)
	assert.Equal(t, "Operator rejected plan", decode(t, rec)["message"])
}

func TestInitiate_RejectsInvalidMobile(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/payments/initiate",
		`{"name":"Ravi","amount":199,"paymentMethod":"upi","mobile":"+91987654","operator":"Airtel"}`, nil)
	requireErrorEnvelope(t, rec, http.StatusBadRequest, application.ErrCodeValidation)
}

func TestHealthMetricsAndDocs(t *testing.T) {
	s := newTestServer(t)
	s.h.SeedPending(t, "ORD_metrics", "")

	health := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"ok","store":"up"}`, health.Body.String())

	s.do(t, http.MethodGet, "/payment/status/ORD_metrics", "", nil)
	metricsRec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `route="/payment/status/{id}"`)

	doc := s.do(t, http.MethodGet, "/docs/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, doc.Code)
	docBody := decode(t, doc)
	assert.Equal(t, "3.0.3", docBody["openapi"])
	servers := docBody["servers"].([]any)
	require.Len(t, servers, 1)
	assert.Equal(t, "http://ledger.test", servers[0].(map[string]any)["url"])

	yamlDoc := s.do(t, http.MethodGet, "/docs/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, yamlDoc.Code)
	assert.Contains(t, yamlDoc.Body.String(), "/api/bank/settlement")
	assert.Contains(t, yamlDoc.Body.String(), "/api/recharge/execute")
	assert.NotContains(t, yamlDoc.Body.String(), "{{")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/nope", "", nil)
	requireErrorEnvelope(t, rec, http.StatusNotFound, application.ErrCodeNotFound)
}
