package main

import "github.com/ValentinKolb/dEBR/cmd"

func main() {
	cmd.Execute()
}
