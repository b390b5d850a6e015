package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/partycoord/internal/api/apierr"
	"github.com/mcoot/partycoord/internal/api/response"
	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/services/codegen"
	"github.com/mcoot/partycoord/internal/storage"
)

// QRSize is the edge length in pixels of generated join codes
const QRSize = 256

// PartyHandler serves the public party directory
type PartyHandler struct {
	storage   storage.Storage
	publicURL string
	logger    *slog.Logger
}

// NewPartyHandler creates a new party handler. Join links in QR codes point at publicURL.
func NewPartyHandler(store storage.Storage, publicURL string, logger *slog.Logger) *PartyHandler {
	return &PartyHandler{
		storage:   store,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger.With(slog.String("component", "party_handler")),
	}
}

// List handles GET /api/v1/parties
func (h *PartyHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.storage.ListParties(r.Context())
	if err != nil {
		h.logger.Error("failed to list parties", slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	listings := make([]response.PartyListing, 0, len(summaries))
	for _, s := range summaries {
		if s.State != model.PartyStateForming {
			continue
		}
		listings = append(listings, response.PartyListingFromModel(s))
	}

	response.JSON(w, http.StatusOK, response.PartyList{Parties: listings})
}

// Get handles GET /api/v1/parties/{code}
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.lookup(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PartyFromModel(summary))
}

// QR handles GET /api/v1/parties/{code}/qr.png
func (h *PartyHandler) QR(w http.ResponseWriter, r *http.Request) {
	summary, err := h.lookup(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.JoinURL(summary.Code), qrcode.Medium, QRSize)
	if err != nil {
		h.logger.Error("qr generation failed",
			slog.String("party_code", string(summary.Code)),
			slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	response.PNG(w, png)
}

// JoinURL returns the link a QR code for code points at
func (h *PartyHandler) JoinURL(code model.PartyCode) string {
	return h.publicURL + "/?code=" + url.QueryEscape(string(code))
}

func (h *PartyHandler) lookup(r *http.Request) (*model.PartySummary, error) {
	code, err := codegen.Parse(mux.Vars(r)["code"])
	if err != nil {
		return nil, err
	}

	summary, err := h.storage.GetParty(r.Context(), code)
	if err != nil && !errors.Is(err, model.ErrPartyNotFound) {
		h.logger.Error("failed to load party",
			slog.String("party_code", string(code)),
			slog.String("error", err.Error()))
		return nil, apierr.NewInternalError()
	}
	return summary, err
}
