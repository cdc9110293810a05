package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldCommand    = "command"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldBalance    = "balance"
	FieldEventID    = "event_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentLedger    = "ledger"
	ComponentBot       = "bot"
	ComponentHTTP      = "http"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpTransfer = "transfer"
	OpSavings  = "savings_deposit"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Fields is a small builder for slog attribute lists.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithUser(userID int64) Fields {
	f[FieldUserID] = userID
	return f
}

// WithError adds the error text; nil is ignored.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// ToSlice converts Fields to key/value pairs for slog.
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
