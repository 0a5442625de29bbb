package main

import "github.com/jfmyers9/playlistlog/cmd"

func main() {
	cmd.Execute()
}
