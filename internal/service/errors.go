package service

import (
	"errors"
	"fmt"
	"net/http"

	"pos_backend/internal/errx"
	"pos_backend/internal/store"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrStorageFailure      = errors.New("storage failure")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateName       = errors.New("product name already exists")
	ErrProductReferenced   = errors.New("product is referenced by transactions")
	ErrStockConflict       = errors.New("stock was changed by another request")
)

func invalidInput(format string, args ...any) *errx.AppError {
	return errx.New(ErrInvalidInput, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func productNotFound(id int64) *errx.AppError {
	return errx.New(ErrProductNotFound, http.StatusNotFound, fmt.Sprintf("product %d not found", id)).
		With("product_id", id)
}

func insufficientStock(id int64, available int) *errx.AppError {
	return errx.New(ErrInsufficientStock, http.StatusConflict, fmt.Sprintf("insufficient stock for product %d", id)).
		With("product_id", id).
		With("available", available)
}

func transactionNotFound(id int64) *errx.AppError {
	return errx.New(ErrTransactionNotFound, http.StatusNotFound, fmt.Sprintf("transaction %d not found", id)).
		With("transaction_id", id)
}

func duplicateName(name string) *errx.AppError {
	return errx.New(ErrDuplicateName, http.StatusConflict, fmt.Sprintf("product %q already exists", name)).
		With("name", name)
}

func productReferenced(id int64) *errx.AppError {
	return errx.New(ErrProductReferenced, http.StatusConflict,
		fmt.Sprintf("product %d is referenced by transactions; use soft delete", id)).
		With("product_id", id)
}

func stockConflict(id int64) *errx.AppError {
	return errx.New(ErrStockConflict, http.StatusConflict, fmt.Sprintf("stock of product %d was changed", id)).
		With("product_id", id)
}

// storageFailure hides the cause from clients but keeps it in the chain for logs.
func storageFailure(err error) *errx.AppError {
	return errx.New(errors.Join(ErrStorageFailure, err), http.StatusInternalServerError, errx.SystemErrorMessage)
}

// productError maps store sentinels for operations on a single product.
func productError(err error, id int64, name string) error {
	var appErr *errx.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrDBNotFound):
		return productNotFound(id)
	case errors.Is(err, store.ErrDBDuplicateName):
		return duplicateName(name)
	case errors.Is(err, store.ErrDBProductReferenced):
		return productReferenced(id)
	case errors.Is(err, store.ErrDBStockConflict):
		return stockConflict(id)
	}
	return storageFailure(err)
}
