package handlers

import (
	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	"github.com/tradeacademy/commissioner/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespListCommissions wraps ScanCommissionsResponse in the standard envelope.
type RespListCommissions struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    affiliate.ScanCommissionsResponse `json:"data"`
}
