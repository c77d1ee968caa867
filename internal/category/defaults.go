package category

func init() {
	MustRegister(Category{
		Key:         "c",
		Suffix:      ".c",
		Local:       true,
		DefaultRoot: "S1",
		ArchiveName: "cfiles.tar",
		Archivable:  true,
		Rank:        0,
		Description: "C source files kept on the hub",
	})
	MustRegister(Category{
		Key:         "pdf",
		Suffix:      ".pdf",
		DefaultRoot: "S2",
		ArchiveName: "pdffiles.tar",
		Archivable:  true,
		Rank:        1,
		Description: "PDF documents",
	})
	MustRegister(Category{
		Key:         "txt",
		Suffix:      ".txt",
		DefaultRoot: "S3",
		ArchiveName: "txtfiles.tar",
		Archivable:  true,
		Rank:        2,
		Description: "plain text files",
	})
	MustRegister(Category{
		Key:         "zip",
		Suffix:      ".zip",
		DefaultRoot: "S4",
		ArchiveName: "zipfiles.tar",
		Archivable:  false,
		Rank:        3,
		Description: "zip archives",
	})
}

// LocalKey 返回由 hub 本地保存的类别键。
func LocalKey() string {
	for _, c := range List() {
		if c.Local {
			return c.Key
		}
	}
	return ""
}

// DefaultRootFor 返回类别键对应的默认物理根目录，未注册时返回 fallback。
func DefaultRootFor(key, fallback string) string {
	if c, ok := Resolve(key); ok && c.DefaultRoot != "" {
		return c.DefaultRoot
	}
	return fallback
}
