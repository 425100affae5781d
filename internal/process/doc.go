// Package process runs yt-dlp, ffmpeg and ffprobe as child processes.
//
// Output is captured per stream and streamed line by line to optional
// callbacks. On timeout the full process tree is killed, so helpers spawned
// by yt-dlp (ffmpeg merges, for instance) do not outlive the run.
package process
