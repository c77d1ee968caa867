package backend

// 存储节点支持的命令，hub 作为客户端使用同一组字面值。
const (
	CmdStore     = "STORE"
	CmdRetrieve  = "RETRIEVE"
	CmdDelete    = "DELETE"
	CmdList      = "LIST"
	CmdCreateTar = "CREATETAR"
	CmdTest      = "TEST"
)

// 回复哨兵，hub 按字面值匹配。
const (
	ReplyReady       = "READY"
	ReplySuccess     = "SUCCESS"
	ReplyError       = "ERROR"
	ReplyFormatError = "FORMAT ERROR"
	ReplyNoFiles     = "No files"
	ReplyTarError    = "TAR_ERROR"
	ReplyOK          = "OK"
	// ReplyAliveSuffix 拼在节点名之后作为 TEST 的回复，例如 S2_OK。
	ReplyAliveSuffix = "_OK"
)
