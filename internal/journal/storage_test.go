package journal

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			name string
			data []byte
			ref  string
			err  error
		)

		BeforeEach(func() {
			name = "id-1_receipt.jpg"
			data = []byte("test file content")
		})

		JustBeforeEach(func() {
			ref, err = storage.Save("session-1", name, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the name as the reference", func() {
				Expect(ref).To(Equal(name))
			})

			It("should save the file under the session directory", func() {
				Expect(filepath.Join(tmpDir, "session-1", name)).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		var (
			ref  string
			data []byte
			err  error
		)

		JustBeforeEach(func() {
			data, err = storage.Get("session-1", ref)
		})

		When("file exists", func() {
			BeforeEach(func() {
				ref = "id-1_receipt.jpg"
				_, saveErr := storage.Save("session-1", ref, []byte("test file content"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct file data", func() {
				Expect(string(data)).To(Equal("test file content"))
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				ref = "nonexistent.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("reading file"))
			})
		})

		When("the file belongs to a different session", func() {
			BeforeEach(func() {
				ref = "id-1_receipt.jpg"
				_, saveErr := storage.Save("session-2", ref, []byte("other session"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		var (
			ref string
			err error
		)

		JustBeforeEach(func() {
			err = storage.Delete("session-1", ref)
		})

		When("file exists", func() {
			BeforeEach(func() {
				ref = "id-1_receipt.jpg"
				_, saveErr := storage.Save("session-1", ref, []byte("test content"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the file from disk", func() {
				Expect(filepath.Join(tmpDir, "session-1", ref)).NotTo(BeAnExistingFile())
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				ref = "nonexistent.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("deleting file"))
			})
		})
	})

	Describe("DeleteAll", func() {
		When("the session has files", func() {
			BeforeEach(func() {
				_, err := storage.Save("session-1", "a.jpg", []byte("a"))
				Expect(err).NotTo(HaveOccurred())
				_, err = storage.Save("session-1", "b.jpg", []byte("b"))
				Expect(err).NotTo(HaveOccurred())
				_, err = storage.Save("session-2", "c.jpg", []byte("c"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("removes the whole session directory", func() {
				Expect(storage.DeleteAll("session-1")).To(Succeed())
				Expect(filepath.Join(tmpDir, "session-1")).NotTo(BeADirectory())
			})

			It("leaves other sessions alone", func() {
				Expect(storage.DeleteAll("session-1")).To(Succeed())
				Expect(filepath.Join(tmpDir, "session-2", "c.jpg")).To(BeAnExistingFile())
			})
		})

		When("the session has no files", func() {
			It("should not return an error", func() {
				Expect(storage.DeleteAll("never-seen")).To(Succeed())
			})
		})
	})

	Describe("NewLocalStorage", func() {
		var (
			storagePath string
			created     Storage
			err         error
		)

		JustBeforeEach(func() {
			created, err = NewLocalStorage(storagePath)
		})

		When("directory does not exist", func() {
			BeforeEach(func() {
				baseDir := GinkgoT().TempDir()
				storagePath = filepath.Join(baseDir, "images")
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should create the directory", func() {
				Expect(storagePath).To(BeADirectory())
			})

			It("should allow saving files", func() {
				_, saveErr := created.Save("session-1", "test.jpg", []byte("data"))
				Expect(saveErr).NotTo(HaveOccurred())
			})
		})

		When("directory already exists", func() {
			BeforeEach(func() {
				storagePath = GinkgoT().TempDir()
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})
})
