package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonRecognizerStart      ReasonCode = "recognizer_start"
	ReasonRecognizerStop       ReasonCode = "recognizer_stop"
	ReasonRecognizerDenied     ReasonCode = "recognizer_denied"
	ReasonRecognizerCapture    ReasonCode = "recognizer_capture"
	ReasonRecognizerNetwork    ReasonCode = "recognizer_network"
	ReasonRecognizerUnknownErr ReasonCode = "recognizer_unknown"

	ReasonSynthSpeak       ReasonCode = "synth_speak"
	ReasonSynthTooLong     ReasonCode = "synth_too_long"
	ReasonSynthInterrupted ReasonCode = "synth_interrupted"
	ReasonSynthNoVoice     ReasonCode = "synth_no_voice"

	ReasonBackendRequest   ReasonCode = "backend_request"
	ReasonBackendDecode    ReasonCode = "backend_decode"
	ReasonBackendStatus    ReasonCode = "backend_status"
	ReasonBackendRateLimit ReasonCode = "backend_rate_limit"

	ReasonPaymentIntent  ReasonCode = "payment_intent"
	ReasonPaymentConfirm ReasonCode = "payment_confirm"

	ReasonGatewayUpgrade ReasonCode = "gateway_upgrade"
	ReasonGatewaySend    ReasonCode = "gateway_send"
)
