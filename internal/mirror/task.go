package mirror

// DownloadTask is one discovered remote file and where it goes locally.
type DownloadTask struct {
	RemotePath string
	LocalPath  string
}

// DownloadResult is the outcome of fetching one DownloadTask. Err is kept for
// logging only; a failed fetch is never fatal to the walk.
type DownloadResult struct {
	Success    bool
	RemotePath string
	Err        error
}

// Job describes one mirror operation.
type Job struct {
	// RemoteRoot is the remote directory the walk starts at.
	RemoteRoot string
	// TemplateRoot is stripped from every remote path before it is joined onto
	// TargetDir. Defaults to RemoteRoot.
	TemplateRoot string
	TargetDir    string
}
