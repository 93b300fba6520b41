package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	PairsSubmitted     Counter
	PairsFilled        Counter
	PairsCanceled      Counter
	DivergentFallbacks Counter
	SessionsCompleted  Counter
	SessionsAborted    Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		PairsSubmitted:     n,
		PairsFilled:        n,
		PairsCanceled:      n,
		DivergentFallbacks: n,
		SessionsCompleted:  n,
		SessionsAborted:    n,
	}
}
