package dispatch

import "github.com/bwmarrin/snowflake"

func snowflakeID(n int64) snowflake.ID { return snowflake.ID(n) }
