package dto

// Amounts arrive as strings ("58.24") and are parsed with exact decimal
// arithmetic server-side. Dates use YYYY-MM-DD.

// CreateReceiptRequest records a new receipt.
type CreateReceiptRequest struct {
	ReceiptDate      string `json:"receipt_date" binding:"required"`
	VendorName       string `json:"vendor_name"`
	GrossAmount      string `json:"gross_amount" binding:"required"`
	TaxAmount        string `json:"tax_amount,omitempty"`
	TaxCode          string `json:"tax_code,omitempty"`
	Category         string `json:"category,omitempty"`
	IsPersonal       bool   `json:"is_personal,omitempty"`
	IsDriverPersonal bool   `json:"is_driver_personal,omitempty"`
}

// LinkRequest links a receipt to a bank transaction.
type LinkRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Actor         string `json:"actor,omitempty"`
}

// SplitLineRequest is one GL-coded line of a split proposal.
type SplitLineRequest struct {
	GLCode        string `json:"gl_code" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// SplitRequest proposes a full split for a receipt.
type SplitRequest struct {
	Lines []SplitLineRequest `json:"lines" binding:"required"`
}

// SuggestSplitLineRequest is one weighted target for a split suggestion.
type SuggestSplitLineRequest struct {
	GLCode string `json:"gl_code" binding:"required"`
	Weight string `json:"weight" binding:"required"`
}

// SuggestSplitRequest asks the server to divide a receipt's gross amount
// across GL codes proportionally to the given weights.
type SuggestSplitRequest struct {
	Lines []SuggestSplitLineRequest `json:"lines" binding:"required"`
}

// CreateTransactionRequest imports one pre-parsed bank-statement row.
// Exactly one of debit_amount / credit_amount must be set.
type CreateTransactionRequest struct {
	AccountID    string `json:"account_id" binding:"required"`
	Date         string `json:"transaction_date" binding:"required"`
	Description  string `json:"description"`
	DebitAmount  string `json:"debit_amount,omitempty"`
	CreditAmount string `json:"credit_amount,omitempty"`
}

// ResolveVendorRequest maps a raw spelling to a canonical vendor.
type ResolveVendorRequest struct {
	RawName string `json:"raw_name"`
}

// MergeVendorsRequest folds one vendor into another.
type MergeVendorsRequest struct {
	FromID string `json:"from_id" binding:"required"`
	ToID   string `json:"to_id" binding:"required"`
	Actor  string `json:"actor,omitempty"`
}

// CreateFloatRequest issues a cash float to a driver.
type CreateFloatRequest struct {
	DriverID     string `json:"driver_id" binding:"required"`
	IssueDate    string `json:"issue_date" binding:"required"`
	IssuedAmount string `json:"issued_amount" binding:"required"`
	Purpose      string `json:"purpose,omitempty"`
}

// AttributeReceiptRequest counts a receipt amount against a float.
type AttributeReceiptRequest struct {
	ReceiptID string `json:"receipt_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

// ReturnFloatRequest records the cash coming back.
type ReturnFloatRequest struct {
	ReturnDate string `json:"return_date" binding:"required"`
}

// ReopenFloatRequest moves a shortage float back to outstanding.
type ReopenFloatRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor,omitempty"`
}
