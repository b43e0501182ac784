package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"

	"validity.app/auditor/common/llm"
)

var _ = Describe("NewCompleter", func() {
	It("requires an API key", func() {
		_, err := llm.NewCompleter(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	DescribeTable("selects the provider",
		func(provider, wantProvider, wantModel string) {
			c, err := llm.NewCompleter(llm.Config{Provider: provider, APIKey: "k"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Provider()).To(Equal(wantProvider))
			Expect(c.Model()).To(Equal(wantModel))
		},
		Entry("default is openai", "", llm.ProviderOpenAI, "gpt-4o-mini"),
		Entry("openai", llm.ProviderOpenAI, llm.ProviderOpenAI, "gpt-4o-mini"),
		Entry("anthropic", llm.ProviderAnthropic, llm.ProviderAnthropic, "claude-sonnet-4-5-20250514"),
	)

	It("keeps an explicit model", func() {
		c, err := llm.NewCompleter(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "gpt-4.1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Model()).To(Equal("gpt-4.1"))
	})

	It("rejects unknown providers", func() {
		_, err := llm.NewCompleter(llm.Config{Provider: "cohere", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	DescribeTable("classifies provider errors",
		func(err error, want bool) {
			Expect(llm.IsRetryable(ctx, err)).To(Equal(want))
		},
		Entry("nil", nil, false),
		Entry("cancelled", context.Canceled, false),
		Entry("deadline wrapped", fmt.Errorf("openai chat: %w", context.DeadlineExceeded), false),
		Entry("network", errors.New("connection reset by peer"), true),
		Entry("openai rate limit", &openai.Error{StatusCode: 429}, true),
		Entry("openai 503", &openai.Error{StatusCode: 503}, true),
		Entry("openai 401", &openai.Error{StatusCode: 401}, false),
		Entry("anthropic overloaded", &anthropic.Error{StatusCode: 529}, true),
		Entry("anthropic 400", &anthropic.Error{StatusCode: 400}, false),
	)
})

var _ = Describe("GenerateSchema", func() {
	type payload struct {
		Summary string   `json:"summary"`
		Items   []string `json:"items"`
	}

	It("reflects an inline object schema without additional properties", func() {
		raw, err := json.Marshal(llm.GenerateSchema[payload]())
		Expect(err).NotTo(HaveOccurred())

		var schema map[string]any
		Expect(json.Unmarshal(raw, &schema)).To(Succeed())
		Expect(schema["type"]).To(Equal("object"))
		Expect(schema["additionalProperties"]).To(BeFalse())
		Expect(schema["properties"]).To(HaveKey("summary"))
		Expect(schema["properties"]).To(HaveKey("items"))
		Expect(schema).NotTo(HaveKey("$defs"))
	})
})

var _ = Describe("Temp", func() {
	It("returns a pointer to the value", func() {
		Expect(*llm.Temp(0)).To(BeZero())
		Expect(*llm.Temp(0.7)).To(Equal(0.7))
	})
})
