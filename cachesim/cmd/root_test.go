package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cachesim/cmd"
)

var _ = Describe("Root command", func() {
	var (
		dir    string
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	writeTrace := func(content string) string {
		path := filepath.Join(dir, "trace.txt")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	run := func(args ...string) int {
		return cmd.Run(args, stdout, stderr)
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	It("should exit silently with the wrong number of arguments", func() {
		Expect(run("1024", "1", "0")).To(Equal(0))
		Expect(stdout.String()).To(BeEmpty())

		Expect(run()).To(Equal(0))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("should reject malformed numbers", func() {
		path := writeTrace("R 0\n")

		Expect(run("1k", "1", "0", "0", path)).To(Equal(1))
		Expect(stdout.String()).To(Equal("Error: Invalid arguments\n"))
	})

	It("should report a trace that cannot be opened", func() {
		code := run("1024", "1", "0", "0", filepath.Join(dir, "missing"))

		Expect(code).To(Equal(1))
		Expect(stdout.String()).To(
			Equal("Error: Could not open the trace file.\n"))
	})

	It("should reject an invalid geometry", func() {
		path := writeTrace("R 0\n")

		Expect(run("1000", "3", "0", "0", path)).To(Equal(1))
		Expect(stdout.String()).To(HavePrefix("Error: "))
	})

	It("should report a negative size as an invalid geometry", func() {
		path := writeTrace("R 0\n")

		Expect(run("-1024", "1", "0", "0", path)).To(Equal(1))
		Expect(stdout.String()).To(HavePrefix("Error: "))
		Expect(stderr.String()).To(BeEmpty())
	})

	It("should keep a negative number after a flag as its value", func() {
		path := writeTrace("R 0\n")

		code := run("--perf-period", "-1", "1024", "1", "0", "0", path)

		Expect(code).To(Equal(1))
		Expect(stderr.String()).To(ContainSubstring("perf-period"))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("should accept a negative size after flags", func() {
		path := writeTrace("R 0\n")

		Expect(run("-v", "-64", "1", "0", "0", path)).To(Equal(1))
		Expect(stdout.String()).To(HavePrefix("Error: "))
	})

	It("should print the statistics of a direct-mapped cache", func() {
		path := writeTrace("R 0\nR 40\n")

		Expect(run("1024", "1", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 1.000000\nWrites: 0\nReads: 2\n"))
	})

	It("should count write-through writes", func() {
		path := writeTrace("R 0\nW 0\n")

		Expect(run("1024", "1", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 0.500000\nWrites: 1\nReads: 1\n"))
	})

	It("should write back dirty victims", func() {
		path := writeTrace("W 0\nR 400\nR 800\n")

		Expect(run("1024", "2", "0", "1", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 1.000000\nWrites: 1\nReads: 3\n"))
	})

	It("should treat any non-zero replacement selector as FIFO", func() {
		path := writeTrace("R 0\nR 400\nR 0\nR 800\nR 0\n")

		Expect(run("1024", "2", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(HavePrefix("Miss Ratio: 0.600000\n"))

		stdout.Reset()

		Expect(run("1024", "2", "-1", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(HavePrefix("Miss Ratio: 0.800000\n"))
	})

	It("should read records glued to their addresses", func() {
		path := writeTrace("R0 W40\n")

		Expect(run("1024", "1", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 1.000000\nWrites: 1\nReads: 2\n"))
	})

	It("should report 0 for an empty trace", func() {
		path := writeTrace("")

		Expect(run("1024", "1", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 0.000000\nWrites: 0\nReads: 0\n"))
	})

	It("should stop at the first malformed record", func() {
		path := writeTrace("R 0\nX 40\nR 80\n")

		Expect(run("1024", "1", "0", "0", path)).To(Equal(0))
		Expect(stdout.String()).To(Equal(
			"Miss Ratio: 1.000000\nWrites: 0\nReads: 1\n"))
	})

	It("should reject an unknown record backend", func() {
		path := writeTrace("R 0\n")

		code := run("--record-backend", "mysql", "1024", "1", "0", "0", path)

		Expect(code).To(Equal(1))
		Expect(stderr.String()).To(ContainSubstring("mysql"))
	})

	It("should record into a sqlite database", func() {
		path := writeTrace("R 0\nW 40\n")
		name := filepath.Join(dir, "run")

		Expect(run("--record", name, "1024", "1", "0", "1", path)).To(Equal(0))
		Expect(filepath.Join(dir, "run.sqlite3")).To(BeAnExistingFile())
	})

	It("should require an output for the miss ratio report", func() {
		path := writeTrace("R 0\n")

		code := run("--perf-period", "10", "1024", "1", "0", "0", path)

		Expect(code).To(Equal(1))
		Expect(stderr.String()).To(ContainSubstring("--perf-period"))
	})

	It("should write the miss ratio report into a CSV file", func() {
		path := writeTrace("R 0\nR 0\nR 40\n")
		name := filepath.Join(dir, "perf")

		code := run("--perf-period", "2", "--perf-csv", name,
			"1024", "1", "0", "0", path)

		Expect(code).To(Equal(0))

		content, err := os.ReadFile(name + ".csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("0,2,Cache,MissRatio"))
		Expect(string(content)).To(ContainSubstring("2,3,Cache,MissRatio"))
	})
})
