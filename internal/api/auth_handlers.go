package api

import (
	"errors"
	"net/http"

	"github.com/fleetradar/fleetradar-backend/internal/auth"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"go.uber.org/zap"
)

type personalRegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	PhoneNumber  string `json:"phoneNumber" validate:"required"`
	FullName     string `json:"fullName" validate:"required"`
	IDCardNumber string `json:"idCardNumber" validate:"required"`
}

type businessRegisterRequest struct {
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required,min=8"`
	PhoneNumber        string `json:"phoneNumber" validate:"required"`
	CompanyName        string `json:"companyName" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	ManagerFullName    string `json:"managerFullName" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *Handlers) registerPersonal(w http.ResponseWriter, r *http.Request) {
	var req personalRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.auth.RegisterPersonal(r.Context(), auth.PersonalRegistration{
		Email:        req.Email,
		Password:     req.Password,
		PhoneNumber:  req.PhoneNumber,
		FullName:     req.FullName,
		IDCardNumber: req.IDCardNumber,
	})
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, authResponse{Token: token})
}

func (h *Handlers) registerBusiness(w http.ResponseWriter, r *http.Request) {
	var req businessRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.auth.RegisterBusiness(r.Context(), auth.BusinessRegistration{
		Email:              req.Email,
		Password:           req.Password,
		PhoneNumber:        req.PhoneNumber,
		CompanyName:        req.CompanyName,
		RegistrationNumber: req.RegistrationNumber,
		ManagerFullName:    req.ManagerFullName,
	})
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, authResponse{Token: token})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, h.logger, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, authResponse{Token: token})
}

func (h *Handlers) writeRegisterError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrDuplicateEmail) {
		writeError(w, h.logger, http.StatusConflict, "email already registered")
		return
	}
	h.logger.Error("registration failed", zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "internal error")
}
