package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/xelth-com/eckscan/internal/utils"
)

// PairRequest represents a scanner pairing request
type PairRequest struct {
	DeviceID    string `json:"device_id" validate:"required,max=64"`
	Name        string `json:"name" validate:"max=128"`
	PairingCode string `json:"pairing_code" validate:"required"`
}

// pairDevice exchanges the shared pairing code for a device bearer token
func (r *Router) pairDevice(w http.ResponseWriter, req *http.Request) {
	var body PairRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondServiceError(w, "pairDevice", err)
		return
	}

	if r.cfg.PairingHash == "" {
		respondError(w, http.StatusServiceUnavailable, "Device pairing is disabled")
		return
	}
	if !utils.CheckPasswordHash(body.PairingCode, r.cfg.PairingHash) {
		r.log.WithField("device", body.DeviceID).Warn("device pairing rejected")
		respondError(w, http.StatusUnauthorized, "Invalid pairing code")
		return
	}

	token, err := utils.GenerateDeviceToken(body.DeviceID, body.Name, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	r.log.WithFields(logrus.Fields{"device": body.DeviceID, "name": body.Name}).Info("device paired")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(utils.DeviceTokenTTL.Seconds()),
	})
}
