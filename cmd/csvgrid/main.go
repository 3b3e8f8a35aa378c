// csvgrid exports database query results as delimited text files.
//
// Usage:
//
//	# Run every export of a job file
//	csvgrid export --jobs jobs.yaml
//
//	# Export one query to a local file
//	csvgrid query --driver sqlite --dsn ./app.db --query "SELECT * FROM users" --out users.csv
package main

func main() {
	Execute()
}
