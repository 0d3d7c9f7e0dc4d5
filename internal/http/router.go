package httpserver

import "net/http"

// Routes groups the portal handlers.
type Routes struct {
	Portal       http.HandlerFunc
	Scan         http.HandlerFunc
	Checkout     http.HandlerFunc
	Status       http.HandlerFunc
	ReceiptEmail http.HandlerFunc
	Health       http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Portal != nil {
		mux.Handle("/portal", method(http.MethodGet, routes.Portal))
	}
	if routes.Scan != nil {
		mux.Handle("/portal/scan", method(http.MethodPost, routes.Scan))
	}
	if routes.Checkout != nil {
		mux.Handle("/portal/checkout", method(http.MethodPost, routes.Checkout))
	}
	if routes.Status != nil {
		mux.Handle("/portal/status", method(http.MethodPost, routes.Status))
	}
	if routes.ReceiptEmail != nil {
		mux.Handle("/portal/receipt-email", method(http.MethodPost, routes.ReceiptEmail))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
