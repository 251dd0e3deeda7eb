package aiservice

import "github.com/siddhantsaxena45/AI-Interviewer/internal/llm"

// Register the AI microservice provider on package import
func init() {
	llm.RegisterProvider(ProviderName, func() (llm.Provider, error) {
		config, err := NewConfig()
		if err != nil {
			return nil, err
		}
		return NewClient(config, nil), nil
	})
}
