package procurement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

// newProcurementRouter serves both resource roots over repo. An empty role
// sends requests without an identity.
func newProcurementRouter(repo *memoryProcRepo, role shared.Role) http.Handler {
	handler := NewHandler(nil, NewService(repo, nil), rbac.Middleware{}, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 5, Role: role}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/purchase-orders", handler.MountPurchaseOrderRoutes)
	r.Route("/api/grns", handler.MountGRNRoutes)
	return r
}

func send(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const poBody = `{"supplier":1,"items":[{"product":10,"quantity":10,"unitPrice":1200},{"product":11,"quantity":50,"unitPrice":30,"tax":150}]}`

const grnBody = `{"purchaseOrder":1,"items":[{"product":10,"receivedQuantity":6,"acceptedQuantity":5}]}`

func TestGRNRouteCapabilities(t *testing.T) {
	repo := newMemoryProcRepo()
	purchase := newProcurementRouter(repo, shared.RolePurchase)
	inventory := newProcurementRouter(repo, shared.RoleInventory)
	admin := newProcurementRouter(repo, shared.RoleAdmin)
	anonymous := newProcurementRouter(repo, "")

	rec := send(purchase, http.MethodPost, "/api/purchase-orders", poBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(anonymous, http.MethodPost, "/api/grns", grnBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Not authorized, no token")

	rec = send(purchase, http.MethodPost, "/api/grns", grnBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grn GRN
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&grn))
	require.Equal(t, GRNStatusPending, grn.Status)
	require.Equal(t, 1, grn.Items[0].RejectedQuantity)

	rec = send(inventory, http.MethodPost, "/api/grns", `{"purchaseOrder":1,"items":[{"product":11,"receivedQuantity":5,"acceptedQuantity":5}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	approvePath := "/api/grns/2/approve"
	rec = send(purchase, http.MethodPatch, approvePath, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "User role Purchase is not authorized to access this route")
	rec = send(purchase, http.MethodPatch, "/api/grns/2/reject", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(anonymous, http.MethodPatch, approvePath, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 25, repo.stock[10])

	rec = send(inventory, http.MethodPatch, approvePath, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&grn))
	require.Equal(t, GRNStatusApproved, grn.Status)
	require.Equal(t, 30, repo.stock[10])

	rec = send(admin, http.MethodPatch, "/api/grns/3/reject", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = send(inventory, http.MethodDelete, "/api/grns/2", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(admin, http.MethodDelete, "/api/grns/2", "")
	require.Equal(t, http.StatusBadRequest, rec.Code, "approved GRNs are kept")
	rec = send(admin, http.MethodDelete, "/api/grns/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "GRN removed")

	sales := newProcurementRouter(repo, shared.RoleSales)
	rec = send(sales, http.MethodGet, "/api/grns", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPurchaseOrderRouteCapabilities(t *testing.T) {
	repo := newMemoryProcRepo()
	purchase := newProcurementRouter(repo, shared.RolePurchase)

	rec := send(purchase, http.MethodPost, "/api/purchase-orders", poBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	inventory := newProcurementRouter(repo, shared.RoleInventory)
	rec = send(inventory, http.MethodGet, "/api/purchase-orders", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = send(purchase, http.MethodDelete, "/api/purchase-orders/1", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = send(newProcurementRouter(repo, ""), http.MethodDelete, "/api/purchase-orders/1", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(newProcurementRouter(repo, shared.RoleAdmin), http.MethodDelete, "/api/purchase-orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "Purchase order removed")
	require.Empty(t, repo.pos)
}

func TestProcurementDecodingAndValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	router := newProcurementRouter(repo, shared.RoleAdmin)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/api/purchase-orders", `{"supplier":`},
		{"empty body", "/api/purchase-orders", ``},
		{"no items", "/api/purchase-orders", `{"supplier":1,"items":[]}`},
		{"zero quantity line", "/api/purchase-orders", `{"supplier":1,"items":[{"product":10,"quantity":0,"unitPrice":5}]}`},
		{"missing product line", "/api/purchase-orders", `{"supplier":1,"items":[{"quantity":2,"unitPrice":5}]}`},
		{"wrong type", "/api/purchase-orders", `{"supplier":"one","items":[{"product":10,"quantity":1}]}`},
		{"grn without items", "/api/grns", `{"purchaseOrder":1}`},
		{"grn negative accepted", "/api/grns", `{"purchaseOrder":1,"items":[{"product":10,"receivedQuantity":1,"acceptedQuantity":-1}]}`},
		{"grn line without product", "/api/grns", `{"purchaseOrder":1,"items":[{"receivedQuantity":1,"acceptedQuantity":1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := send(router, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	require.Empty(t, repo.pos)
	require.Empty(t, repo.grns)

	rec := send(router, http.MethodPatch, "/api/purchase-orders/abc/status", `{"status":"Confirmed"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(router, http.MethodGet, "/api/purchase-orders/42", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcurementListEnvelopes(t *testing.T) {
	repo := newMemoryProcRepo()
	router := newProcurementRouter(repo, shared.RoleAdmin)

	require.Equal(t, http.StatusCreated, send(router, http.MethodPost, "/api/purchase-orders", poBody).Code)
	require.Equal(t, http.StatusCreated, send(router, http.MethodPost, "/api/grns", grnBody).Code)

	rec := send(router, http.MethodGet, "/api/purchase-orders?page=1&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pos struct {
		PurchaseOrders []PurchaseOrder   `json:"purchaseOrders"`
		Pagination     shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pos))
	require.Len(t, pos.PurchaseOrders, 1)
	require.Equal(t, 1, pos.Pagination.TotalItems)
	require.Equal(t, 1, pos.Pagination.CurrentPage)

	rec = send(router, http.MethodGet, "/api/grns?status=Pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grns map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&grns))
	require.Contains(t, grns, "grns")
	require.Contains(t, grns, "pagination")
	var list []GRN
	require.NoError(t, json.Unmarshal(grns["grns"], &list))
	require.Len(t, list, 1)

	rec = send(router, http.MethodGet, "/api/purchase-orders?status=Bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
