package crm_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/openfam/fam-go/crm"
)

func TestCRMSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "crm suite")
}

var _ = Describe("resource table", func() {
	var (
		garbage *crm.Garbage
		table   *crm.Table
	)

	BeforeEach(func() {
		garbage = crm.NewGarbage()
		table = crm.NewTable(garbage)
	})

	It("keeps CloseAll from touching an empty table", func() {
		table.CloseAll()
		Expect(table.Len()).To(Equal(0))
	})

	It("moves every live entry to the garbage queue on CloseAll", func() {
		e1 := table.FindOrCreate(1)
		e2 := table.FindOrCreate(2)
		_, _, err := crm.Open(e1)
		Expect(err).NotTo(HaveOccurred())
		_, _, err = crm.Open(e2)
		Expect(err).NotTo(HaveOccurred())

		table.CloseAll()

		Expect(table.Len()).To(Equal(0))
		Expect(garbage.Len()).To(Equal(2))
	})
})
