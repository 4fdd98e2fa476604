package main

/*
bio-demux sorts long reads into samples by the tags at their ends.

  bio-demux run demux.toml
  bio-demux view -cluster duck demux.rio
  bio-demux export -format bam -dir out demux.rio
  bio-demux checksum demux.rio
*/

import "github.com/grailbio/demux/cmd/bio-demux/cmd"

func main() {
	cmd.Run()
}
