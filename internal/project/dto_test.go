package project

import (
	"strings"
	"unicode/utf8"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/waynecorp/project-registry/internal"
)

var _ = ginkgo.Describe("ParsePatch", func() {
	ginkgo.It("should accept a description-only patch", func() {
		patch, err := ParsePatch([]byte(`{"description":"A new description."}`))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(*patch.Description).To(gomega.Equal("A new description."))
		gomega.Expect(patch.Tier).To(gomega.BeNil())
		gomega.Expect(patch.ChangedFields()).To(gomega.Equal([]string{"description"}))
	})

	ginkgo.It("should accept a tier-only patch", func() {
		patch, err := ParsePatch([]byte(`{"tier":"secret"}`))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(*patch.Tier).To(gomega.Equal(TierSecret))
		gomega.Expect(patch.Fields()).To(gomega.Equal(map[string]interface{}{
			"tier":         "secret",
			"access_level": "Confidential",
		}))
	})

	ginkgo.It("should normalize tier casing and whitespace", func() {
		patch, err := ParsePatch([]byte(`{"tier":"  SECRET "}`))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(*patch.Tier).To(gomega.Equal(TierSecret))
	})

	ginkgo.It("should reject unknown fields by name", func() {
		_, err := ParsePatch([]byte(`{"tier":"secret","owner":"x","name":"x"}`))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("fields not permitted: name, owner")))
	})

	ginkgo.It("should reject a body that is not a JSON object", func() {
		_, err := ParsePatch([]byte(`"tier=secret"`))

		gomega.Expect(err).To(gomega.HaveOccurred())
		_, ok := internal.IsAppError(err)
		gomega.Expect(ok).To(gomega.BeTrue())
	})

	ginkgo.It("should reject an empty object", func() {
		_, err := ParsePatch([]byte(`{}`))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("no valid fields")))
	})

	ginkgo.It("should reject an unrecognized tier value", func() {
		_, err := ParsePatch([]byte(`{"tier":"classified"}`))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("tier must be one of")))
	})

	ginkgo.It("should reject a non-string description", func() {
		_, err := ParsePatch([]byte(`{"description":42}`))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("description must be a string")))
	})

	ginkgo.It("should reject a blank description", func() {
		_, err := ParsePatch([]byte(`{"description":"   "}`))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("must not be empty")))
	})

	ginkgo.It("should accept a description of exactly the maximum length", func() {
		body := `{"description":"` + strings.Repeat("a", MaxDescriptionLength) + `"}`

		patch, err := ParsePatch([]byte(body))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(*patch.Description).To(gomega.HaveLen(MaxDescriptionLength))
	})

	ginkgo.It("should reject a description one character over the limit", func() {
		body := `{"description":"` + strings.Repeat("a", MaxDescriptionLength+1) + `"}`

		_, err := ParsePatch([]byte(body))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("at most 500 characters")))
	})

	ginkgo.It("should count characters, not bytes, for multibyte descriptions", func() {
		body := `{"description":"` + strings.Repeat("é", MaxDescriptionLength) + `"}`

		patch, err := ParsePatch([]byte(body))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(utf8.RuneCountInString(*patch.Description)).To(gomega.Equal(MaxDescriptionLength))

		body = `{"description":"` + strings.Repeat("é", MaxDescriptionLength+1) + `"}`
		_, err = ParsePatch([]byte(body))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("at most 500 characters")))
	})
})

var _ = ginkgo.Describe("Tier", func() {
	ginkgo.It("should map each tier to its access level", func() {
		gomega.Expect(TierCommercial.AccessLevel()).To(gomega.Equal("Restricted"))
		gomega.Expect(TierSecret.AccessLevel()).To(gomega.Equal("Confidential"))
		gomega.Expect(TierPublic.AccessLevel()).To(gomega.Equal("Public"))
	})

	ginkgo.It("should parse tiers case-insensitively", func() {
		tier, ok := ParseTier("Commercial")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(tier).To(gomega.Equal(TierCommercial))

		_, ok = ParseTier("classified")
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
