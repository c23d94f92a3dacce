package mcp

// Message is a JSON-RPC 2.0 message as used by the MCP stdio transport
type Message struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewErrorMessage builds an error response
func NewErrorMessage(id interface{}, code int, message string) *Message {
	return &Message{
		Jsonrpc: "2.0",
		Id:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// NewResultMessage builds a success response
func NewResultMessage(id interface{}, result interface{}) *Message {
	return &Message{Jsonrpc: "2.0", Id: id, Result: result}
}

// IsRequest reports whether the message expects a response
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.Id != nil
}

// IsNotification reports whether the message is fire-and-forget
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.Id == nil
}
