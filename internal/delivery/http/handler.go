package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
	carts     *service.CartService
	orders    *service.OrderService
	events    http.Handler
}

// NewHandler wires the services. events serves websocket subscriptions and
// may be nil.
func NewHandler(
	catalog *service.CatalogService,
	inventory *service.InventoryService,
	carts *service.CartService,
	orders *service.OrderService,
	events http.Handler,
) *Handler {
	return &Handler{
		catalog:   catalog,
		inventory: inventory,
		carts:     carts,
		orders:    orders,
		events:    events,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, EnableCORS, WithIdentity)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.handleListProducts)
		r.Get("/products/{id}", h.handleGetProduct)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/products", h.handleCreateProduct)
			r.Put("/products/{id}", h.handleUpdateProduct)
			r.Delete("/products/{id}", h.handleDeleteProduct)
			r.Put("/products/{id}/quantity", h.handleSetStock)
			r.Post("/products/expiry", h.handleRecomputeExpiry)
			r.Get("/orders", h.handleListOrders)
			r.Put("/orders/{id}/status", h.handleUpdateStatus)
			r.Post("/orders/{id}/projection", h.handleRebuildProjection)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/cart", h.handleAddToCart)
			r.Get("/cart", h.handleGetCart)
			r.Delete("/cart", h.handleClearCart)
			r.Delete("/cart/{productId}", h.handleRemoveFromCart)
			r.Post("/cart/checkout", h.handleCheckout)

			r.Post("/orders", h.handleCreateOrder)
			r.Get("/client/orders", h.handleListMyOrders)
			r.Get("/orders/{id}", h.handleGetOrder)
			r.Get("/orders/{id}/history", h.handleOrderHistory)
		})
	})

	if h.events != nil {
		r.Handle("/ws", h.events)
	}
	return r
}

// --- products ---

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []entity.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.catalog.ListByCategory(r.Context(), category)
	} else {
		products, err = h.catalog.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setStockRequest struct {
	Stock *float64 `json:"stock"`
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Stock == nil {
		writeError(w, r, fmt.Errorf("%w: stock is required", entity.ErrInvalidInput))
		return
	}
	p, err := h.inventory.SetStock(r.Context(), chi.URLParam(r, "id"), *req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRecomputeExpiry(w http.ResponseWriter, r *http.Request) {
	changed, err := h.inventory.RecomputeAllExpiry(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"changed": changed})
}

// --- cart ---

type addToCartRequest struct {
	ProductID string   `json:"product_id"`
	Amount    *float64 `json:"amount,omitempty"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, entity.ErrMissingLineItemID)
		return
	}
	userID := IdentityFrom(r.Context()).UserID
	held, err := h.carts.Add(r.Context(), userID, req.ProductID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": req.ProductID, "amount": held})
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), IdentityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), IdentityFrom(r.Context()).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID := IdentityFrom(r.Context()).UserID
	if err := h.carts.Remove(r.Context(), userID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	Buyer entity.BuyerDetails `json:"buyer"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := IdentityFrom(r.Context())
	if req.Buyer.Name == "" {
		req.Buyer.Name = id.UserID
	}
	order, err := h.carts.Checkout(r.Context(), id.UserID, req.Buyer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// --- orders ---

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd entity.PlaceOrder
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, r, err)
		return
	}
	if cmd.Buyer.Name == "" {
		cmd.Buyer.Name = IdentityFrom(r.Context()).UserID
	}
	order, err := h.orders.PlaceOrder(r.Context(), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// handleListMyOrders lists the orders placed under the caller's user ID.
func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForBuyer(r.Context(), IdentityFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// visibleOrder loads an order the caller may see. Other buyers' orders look
// missing to non-admins.
func (h *Handler) visibleOrder(r *http.Request) (entity.Order, error) {
	orderID := chi.URLParam(r, "id")
	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		return entity.Order{}, err
	}
	id := IdentityFrom(r.Context())
	if !id.HasRole(RoleAdmin) && order.Buyer.Name != id.UserID {
		return entity.Order{}, fmt.Errorf("%w: %s", entity.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.visibleOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	order, err := h.visibleOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.orders.History(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), entity.ChangeOrderStatus{
		OrderID: chi.URLParam(r, "id"),
		Status:  entity.OrderStatus(req.Status),
		Comment: req.Comment,
		Actor:   IdentityFrom(r.Context()).UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleRebuildProjection(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.RebuildProjection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
