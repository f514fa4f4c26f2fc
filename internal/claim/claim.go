package claim

// Payment types selectable on the claim form. Exactly one check-mark slot in
// the template is filled for the chosen type.
const (
	PaymentVendor        = "vendor_payment"
	PaymentReimbursement = "reimbursement"
	PaymentAdvance       = "advance"
)

// Record holds the user-submitted claim fields for one submission. All
// values are plain text as they arrived on the form; nothing is persisted
// beyond the produced output files.
type Record struct {
	Date           string // ISO YYYY-MM-DD, blank means today
	Amount         string
	AmountWords    string // optional user override of the computed words
	EventName      string
	Purpose        string
	BudgetName     string
	BudgetHead     string
	BudgetedAmount string
	AmountSpent    string
	PaymentType    string

	AccountNumber string
	AccountHolder string
	BankName      string
	IFSC          string
	Branch        string

	// BundleName is the optional user-supplied output filename (without
	// extension). Blank means a timestamped default.
	BundleName string
}

// Upload is one submitted bill file before validation.
type Upload struct {
	Filename string
	Data     []byte
}

// BillAsset is a stored bill, already page-based: either an uploaded PDF or
// an image normalized into a one-page PDF.
type BillAsset struct {
	// Name is the generated unique storage name of the PDF artifact.
	Name string
	// OriginalName is the sanitized filename the user uploaded.
	OriginalName string
}

// Bundles names the two produced outputs of a submission. Both live in the
// upload storage directory until downloaded or externally purged.
type Bundles struct {
	Full      string // filled template pages followed by bill pages
	BillsOnly string // bill pages only, same order
}
