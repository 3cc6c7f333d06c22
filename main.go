package main

import "github.com/Taichi-iskw/yt-vocab/cmd"

func main() {
	cmd.Execute()
}
