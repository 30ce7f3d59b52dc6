package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("AccessPolicy", func() {
	ginkgo.Describe("VisibleTiers", func() {
		ginkgo.It("should limit sellers to public projects", func() {
			gomega.Expect(VisibleTiers(RoleSeller)).To(gomega.ConsistOf("public"))
		})

		ginkgo.It("should give managers commercial and public projects", func() {
			gomega.Expect(VisibleTiers(RoleManager)).To(gomega.ConsistOf("commercial", "public"))
		})

		ginkgo.It("should give security admins every tier", func() {
			gomega.Expect(VisibleTiers(RoleSecurityAdmin)).To(gomega.ConsistOf("commercial", "secret", "public"))
		})

		ginkgo.It("should return nothing for an unknown role", func() {
			gomega.Expect(VisibleTiers(Role("intern"))).To(gomega.BeEmpty())
			gomega.Expect(VisibleTiers(Role(""))).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("CanReadTier", func() {
		ginkgo.It("should keep secret projects away from everyone but security admins", func() {
			gomega.Expect(CanReadTier(RoleSecurityAdmin, "secret")).To(gomega.BeTrue())
			gomega.Expect(CanReadTier(RoleManager, "secret")).To(gomega.BeFalse())
			gomega.Expect(CanReadTier(RoleSeller, "secret")).To(gomega.BeFalse())
		})

		ginkgo.It("should let every role read public projects", func() {
			gomega.Expect(CanReadTier(RoleSeller, "public")).To(gomega.BeTrue())
			gomega.Expect(CanReadTier(RoleManager, "public")).To(gomega.BeTrue())
			gomega.Expect(CanReadTier(RoleSecurityAdmin, "public")).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("CanMutateProjects", func() {
		ginkgo.It("should only allow security admins", func() {
			gomega.Expect(CanMutateProjects(RoleSecurityAdmin)).To(gomega.BeTrue())
			gomega.Expect(CanMutateProjects(RoleManager)).To(gomega.BeFalse())
			gomega.Expect(CanMutateProjects(RoleSeller)).To(gomega.BeFalse())
			gomega.Expect(CanMutateProjects(Role(""))).To(gomega.BeFalse())
		})
	})
})
