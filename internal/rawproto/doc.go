/*
Package rawproto defines the file-based contract between the server and the
RAW decode worker subprocess.

The worker is invoked as

	rawworker <inputPath> <outputPath>

and on success leaves two files behind:

	<outputPath>       raw pixel payload, no header, samples in the byte order
	                   named by the metadata
	<outputPath>.json  {"width":4000,"height":3000,"channels":3,"bits":14,
	                    "endianness":"little","orientation":1}

Samples are one byte when bits <= 8 and two bytes otherwise. The payload is
always three-channel RGB; an alpha channel is stripped before writing.
Exit status 0 signals success. Any other status, or a missing payload or
metadata file, is a worker failure.

Both sides validate: the worker before writing anything, the reader before
handing the buffer to the renderer.
*/
package rawproto
