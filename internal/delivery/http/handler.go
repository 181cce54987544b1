package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nadhifra/storefront-checkout/internal/cartstore"
	"github.com/nadhifra/storefront-checkout/internal/domain"
	"github.com/nadhifra/storefront-checkout/internal/repository"
	"github.com/nadhifra/storefront-checkout/internal/usecase"
)

type Handler struct {
	checkout *usecase.CheckoutService
	store    repository.Store
	carts    cartstore.Store
}

func NewHandler(checkout *usecase.CheckoutService, store repository.Store, carts cartstore.Store) *Handler {
	return &Handler{checkout: checkout, store: store, carts: carts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/coupons/validate", h.ValidateCoupon)
		r.Post("/coupons", h.CreateCoupon)
		r.Get("/coupons", h.ListCoupons)
		r.Get("/coupons/{code}", h.GetCoupon)

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/cart/{session}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items", h.SetCartItemQuantity)
			r.Delete("/items", h.RemoveCartItem)
		})

		r.Post("/orders", h.PlaceOrder)
	})
}

type ValidateCouponRequest struct {
	Code         string `json:"code"`
	CartTotal    int64  `json:"cart_total"`
	BuyerID      string `json:"buyer_id,omitempty"`
	BuyerEmail   string `json:"buyer_email,omitempty"`
	IsFirstOrder *bool  `json:"is_first_order,omitempty"`
}

type ValidateCouponResponse struct {
	Valid          bool   `json:"valid"`
	DiscountAmount int64  `json:"discount_amount,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message"`
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.CartTotal < 0 {
		respondError(w, http.StatusBadRequest, "cart_total must not be negative")
		return
	}

	result, err := h.checkout.ValidateCoupon(r.Context(), domain.EvaluationRequest{
		Code:         req.Code,
		CartTotal:    req.CartTotal,
		BuyerID:      req.BuyerID,
		BuyerEmail:   req.BuyerEmail,
		IsFirstOrder: req.IsFirstOrder,
	})
	if err != nil {
		log.Printf("coupon validation: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	respondJSON(w, evaluationStatus(result), ValidateCouponResponse{
		Valid:          result.Valid,
		DiscountAmount: result.DiscountAmount,
		Reason:         string(result.Reason),
		Message:        result.Message,
	})
}

// evaluationStatus maps evaluator outcomes onto transport status codes:
// unknown codes are 404, every other rejection is a plain validation 400.
func evaluationStatus(result domain.EvaluationResult) int {
	switch {
	case result.Valid:
		return http.StatusOK
	case result.Reason == domain.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

type CouponRequest struct {
	Code              string `json:"code"`
	DiscountType      string `json:"discount_type"`
	DiscountValue     int64  `json:"discount_value"`
	MinOrderAmount    *int64 `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *int64 `json:"max_discount_amount,omitempty"`
	UsageLimit        *int   `json:"usage_limit,omitempty"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	IsActive          *bool  `json:"is_active,omitempty"`
	ApplicableTo      string `json:"applicable_to,omitempty"`
}

type CouponResponse struct {
	Code              string `json:"code"`
	DiscountType      string `json:"discount_type"`
	DiscountValue     int64  `json:"discount_value"`
	MinOrderAmount    *int64 `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *int64 `json:"max_discount_amount,omitempty"`
	UsageLimit        *int   `json:"usage_limit,omitempty"`
	UsedCount         int    `json:"used_count"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	IsActive          bool   `json:"is_active"`
	ApplicableTo      string `json:"applicable_to"`
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	coupon, errMsg := couponFromRequest(req)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	if err := h.store.CreateCoupon(r.Context(), coupon); err != nil {
		if errors.Is(err, domain.ErrDuplicateCoupon) {
			respondError(w, http.StatusConflict, "coupon already exists")
			return
		}
		h.internalError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, couponToResponse(coupon))
}

func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	coupon, err := h.store.GetCouponByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			respondError(w, http.StatusNotFound, "coupon not found")
			return
		}
		h.internalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, couponToResponse(coupon))
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.store.ListCoupons(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}

	out := make([]CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, couponToResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func couponFromRequest(req CouponRequest) (domain.Coupon, string) {
	if req.Code == "" {
		return domain.Coupon{}, "code is required"
	}

	discountType := domain.DiscountType(req.DiscountType)
	if discountType != domain.DiscountPercentage && discountType != domain.DiscountFixed {
		return domain.Coupon{}, "discount_type must be \"percentage\" or \"fixed\""
	}
	if req.DiscountValue < 0 {
		return domain.Coupon{}, "discount_value must not be negative"
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return domain.Coupon{}, "start_date must be RFC3339"
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return domain.Coupon{}, "end_date must be RFC3339"
	}
	if end.Before(start) {
		return domain.Coupon{}, "end_date must not be before start_date"
	}

	applicableTo := domain.Applicability(req.ApplicableTo)
	if applicableTo == "" {
		applicableTo = domain.ApplicableToAll
	}
	if applicableTo != domain.ApplicableToAll && applicableTo != domain.ApplicableToFirstOrder {
		return domain.Coupon{}, "applicable_to must be \"all\" or \"first-order\""
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return domain.Coupon{
		Code:              req.Code,
		DiscountType:      discountType,
		DiscountValue:     req.DiscountValue,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		StartDate:         start,
		EndDate:           end,
		IsActive:          isActive,
		ApplicableTo:      applicableTo,
	}, ""
}

func couponToResponse(c domain.Coupon) CouponResponse {
	return CouponResponse{
		Code:              c.Code,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue,
		MinOrderAmount:    c.MinOrderAmount,
		MaxDiscountAmount: c.MaxDiscountAmount,
		UsageLimit:        c.UsageLimit,
		UsedCount:         c.UsedCount,
		StartDate:         c.StartDate.Format(time.RFC3339),
		EndDate:           c.EndDate.Format(time.RFC3339),
		IsActive:          c.IsActive,
		ApplicableTo:      string(c.ApplicableTo),
	}
}

type ProductRequest struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Price  int64    `json:"price"`
	Sizes  []string `json:"sizes,omitempty"`
	Colors []string `json:"colors,omitempty"`
}

type ProductResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  int64    `json:"price"`
	Sizes  []string `json:"sizes,omitempty"`
	Colors []string `json:"colors,omitempty"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	product := domain.Product{
		ID:     req.ID,
		Name:   req.Name,
		Price:  req.Price,
		Sizes:  req.Sizes,
		Colors: req.Colors,
	}
	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		if errors.Is(err, domain.ErrDuplicateProduct) {
			respondError(w, http.StatusConflict, "product already exists")
			return
		}
		h.internalError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, productToResponse(product))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, productToResponse(product))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productToResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func productToResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Sizes:  p.Sizes,
		Colors: p.Colors,
	}
}

type CartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type CartResponse struct {
	SessionID string            `json:"session_id"`
	Items     []domain.LineItem `json:"items"`
	Count     int               `json:"count"`
	Subtotal  int64             `json:"subtotal"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := usecase.LoadCart(r.Context(), chi.URLParam(r, "session"), h.carts)
	h.respondCart(w, chi.URLParam(r, "session"), cart)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")

	var req CartItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.store.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, err)
		return
	}

	cart := usecase.LoadCart(r.Context(), session, h.carts)
	if err := cart.Add(r.Context(), product, req.Quantity, req.Size, req.Color); err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internalError(w, err)
		return
	}

	h.respondCart(w, session, cart)
}

func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")

	var req CartItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart := usecase.LoadCart(r.Context(), session, h.carts)
	if err := cart.SetQuantity(r.Context(), req.ProductID, req.Quantity, req.Size, req.Color); err != nil {
		h.internalError(w, err)
		return
	}

	h.respondCart(w, session, cart)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	q := r.URL.Query()

	cart := usecase.LoadCart(r.Context(), session, h.carts)
	if err := cart.Remove(r.Context(), q.Get("product_id"), q.Get("size"), q.Get("color")); err != nil {
		h.internalError(w, err)
		return
	}

	h.respondCart(w, session, cart)
}

func (h *Handler) respondCart(w http.ResponseWriter, session string, cart *usecase.Cart) {
	respondJSON(w, http.StatusOK, CartResponse{
		SessionID: session,
		Items:     cart.Items(),
		Count:     cart.Count(),
		Subtotal:  cart.Subtotal(),
	})
}

type PlaceOrderRequest struct {
	SessionID    string            `json:"session_id,omitempty"`
	Items        []domain.LineItem `json:"items,omitempty"`
	Shipping     int64             `json:"shipping"`
	CouponCode   string            `json:"coupon_code,omitempty"`
	BuyerID      string            `json:"buyer_id,omitempty"`
	BuyerEmail   string            `json:"buyer_email,omitempty"`
	IsFirstOrder *bool             `json:"is_first_order,omitempty"`
}

type PlaceOrderResponse struct {
	OrderID        string `json:"order_id"`
	Subtotal       int64  `json:"subtotal"`
	Shipping       int64  `json:"shipping"`
	DiscountAmount int64  `json:"discount_amount"`
	Total          int64  `json:"total"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Shipping < 0 {
		respondError(w, http.StatusBadRequest, "shipping must not be negative")
		return
	}

	items := req.Items
	var cart *usecase.Cart
	if len(items) == 0 && req.SessionID != "" {
		cart = usecase.LoadCart(r.Context(), req.SessionID, h.carts)
		items = cart.Items()
	}

	order, err := h.checkout.PlaceOrder(r.Context(), usecase.PlaceOrderInput{
		Items:        items,
		Shipping:     req.Shipping,
		CouponCode:   req.CouponCode,
		BuyerID:      req.BuyerID,
		BuyerEmail:   req.BuyerEmail,
		IsFirstOrder: req.IsFirstOrder,
	})
	if err != nil {
		var rejected *domain.CouponRejectedError
		switch {
		case errors.As(err, &rejected):
			respondError(w, evaluationStatus(rejected.Result), rejected.Result.Message)
		case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, domain.ErrInvalidQuantity):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUsageLimitReached):
			respondError(w, http.StatusBadRequest, "Coupon usage limit reached.")
		default:
			h.internalError(w, err)
		}
		return
	}

	// The store is authoritative for the cart; clearing it after the order
	// committed only fails the snapshot, not the order.
	if cart != nil {
		if err := cart.Clear(r.Context()); err != nil {
			log.Printf("order %s: failed to clear cart %s: %v", order.ID, req.SessionID, err)
		}
	}

	respondJSON(w, http.StatusCreated, PlaceOrderResponse{
		OrderID:        order.ID,
		Subtotal:       order.Subtotal,
		Shipping:       order.Shipping,
		DiscountAmount: order.DiscountAmount,
		Total:          order.Total,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	respondError(w, http.StatusInternalServerError, "Something went wrong, please try again.")
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
