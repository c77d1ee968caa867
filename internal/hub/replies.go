package hub

// 客户端命令。
const (
	cmdUpload   = "uploadf"
	cmdDownload = "downlf"
	cmdRemove   = "removef"
	cmdList     = "dispfnames"
	cmdTar      = "downltar"
	cmdTest     = "TEST"
)

// 回复字面值，客户端按前缀识别。
const (
	replyReady    = "READY"
	replyTarReady = "TAR_READY"

	msgUnknownCommand = "ERROR: Unknown command"

	msgUploadUsage      = "ERROR: Not enough arguments. Command: uploadf file1 [file2] [file3] dest_path"
	msgUploadTooMany    = "ERROR: Too many arguments. Max 3 files allowed"
	msgUploadNotReceive = "ERROR: Failed to receive all files"
	msgUploadAll        = "SUCCESS: All files uploaded and distributed successfully"
	msgUploadPartial    = "PARTIAL SUCCESS: %d/%d files uploaded successfully"
	msgUploadNone       = "ERROR: Failed to distribute any files"

	msgDownloadUsage   = "ERROR: Not enough arguments. Command: downlf filepath1 [filepath2]"
	msgDownloadTooMany = "ERROR: Too many arguments. Command: downlf filepath1 [filepath2] (max 2 files)"
	msgDownloadNone    = "ERROR: No files could be retrieved"

	msgRemoveUsage   = "ERROR: Not enough arguments. Command: removef filepath1 [filepath2]"
	msgRemoveTooMany = "ERROR: Too many arguments. Max 2 files allowed"
	msgRemoveAll     = "SUCCESS: All files deleted successfully"
	msgRemovePartial = "PARTIAL SUCCESS: %d/%d files deleted successfully"
	msgRemoveNone    = "ERROR: Failed to delete any files"

	msgListUsage    = "ERROR: Invalid command format. Command: dispfnames pathname"
	msgListEmpty    = "No files found in the specified directory\n"
	msgListTooLarge = "ERROR: Listing too large to send"

	msgTarUsage       = "FORMAT_ERROR: Command: downltar filetype"
	msgTarUnsupported = "%s file not supported for tar operations"
	msgTarInvalid     = "INVALID_TYPE: Only %s supported"
	msgTarFailed      = "TAR_ERROR: Failed to create tar file"

	msgProbeAll  = "%s OK - All servers connected"
	msgProbeSome = "%s ERROR - Some servers not available"

	msgStagedUnavailable = "ERROR: staged file unavailable"
)

// 单条命令允许的文件数量上限。
const (
	maxUploadFiles   = 3
	maxDownloadFiles = 2
	maxRemoveFiles   = 2
)
