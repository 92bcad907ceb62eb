package api

import (
	"net/http"

	"order-fulfillment/fulfillment/types"
)

// kindToStatus maps error kinds to HTTP status codes. Kinds not listed are
// server errors.
var kindToStatus = map[types.ErrorKind]int{
	types.KindInvalidInput: http.StatusBadRequest,
	types.KindNotFound:     http.StatusNotFound,
	types.KindItemNotFound: http.StatusNotFound,
	types.KindOutOfStock:   http.StatusConflict,
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[types.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
